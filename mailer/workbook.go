package mailer

import (
	"fmt"
	"io"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/reports"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the report.
const SheetName = "Sheet1"

// WorkbookName is the attachment file name of a report.
func WorkbookName(r reports.Report) string {
	return fmt.Sprintf("attendance-%s-%04d-%02d.xlsx", r.EmployeeID, r.Year, int(r.Month))
}

// WriteWorkbook renders the report as a two-column spreadsheet: attendance
// figures first, then the payroll breakdown when the report carries one.
func WriteWorkbook(w io.Writer, r reports.Report, employee generic.CompensationProfile) error {
	f := excelize.NewFile()
	defer f.Close()

	_ = f.SetColWidth(SheetName, "A", "A", 28)
	_ = f.SetColWidth(SheetName, "B", "B", 18)

	d := r.Data
	rows := [][]interface{}{
		{"Employee", employee.Name},
		{"Employee ID", string(r.EmployeeID)},
		{"Period", fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))},
		{"Status", string(r.Status)},
		{},
		{"Days in month", d.TotalDays},
		{"Required working days", d.RequiredWorkingDays},
		{"Days present", d.DaysPresent},
		{"Days on leave", d.DaysLeave},
		{"Days sick", d.DaysSick},
		{"Days absent", d.DaysAbsent},
		{"Holidays", d.DaysHoliday},
		{"Weekend days", d.DaysWeekend},
		{"Late arrivals", d.LateArrivals},
		{"Overtime hours", d.OvertimeHours.StringFixed(2)},
		{"Attendance %", d.AttendancePercentage.StringFixed(2)},
		{"Payable days", d.PayableDays},
	}

	if p := r.Payroll; p != nil {
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"Currency", p.Currency},
			[]interface{}{"Base salary", p.BaseSalary.StringFixed(2)},
			[]interface{}{"Overtime pay", p.OvertimePay.StringFixed(2)},
			[]interface{}{"Bonus", p.Bonus.StringFixed(2)},
			[]interface{}{"Gross salary", p.GrossSalary.StringFixed(2)},
			[]interface{}{"Late deduction", p.LateDeduction.StringFixed(2)},
			[]interface{}{"Off-day deduction", p.OffDeduction.StringFixed(2)},
			[]interface{}{"Owing", p.OwingDeduction.StringFixed(2)},
			[]interface{}{"Pension", p.PensionDeduction.StringFixed(2)},
			[]interface{}{"Tax (PAYE)", p.TaxAmount.StringFixed(2)},
			[]interface{}{"Total deductions", p.TotalDeductions.StringFixed(2)},
			[]interface{}{"Net salary", p.NetSalary.StringFixed(2)},
		)
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		row := row
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
