// Package export converts leads from and to CSV and XLSX spreadsheets.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/teleapo/core/lead"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	bom       = "\ufeff"
	sheetName = "Leads"

	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

var (
	Header = []string{"氏名", "会社名", "電話番号", "メールアドレス", "都道府県", "業種", "メモ"}

	sampleRows = [][]string{
		{"山田 太郎", "株式会社サンプル", "03-1234-5678", "yamada@sample.co.jp", "東京都", "IT", "テストデータ1"},
		{"佐藤 花子", "テスト商事", "06-9876-5432", "sato@test.co.jp", "大阪府", "製造業", "テストデータ2"},
		{"鈴木 一郎", "サンプル工業", "052-1111-2222", "suzuki@sample.jp", "愛知県", "サービス業", "テストデータ3"},
	}

	exportHeader = append(append([]string{}, Header...), "ステータス", "次回アクション", "作成日")

	// errors
	ErrUnknownFormat = errors.New("format must be csv or xlsx")
	ErrEmptyFile     = errors.New("file has no data rows")
)

// File is a generated spreadsheet. XLSX content is base64 encoded.
type File struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Encoding string `json:"encoding,omitempty"`
}

// SampleRows returns the header and example rows of the import template.
func SampleRows() [][]string {
	rows := make([][]string, 0, len(sampleRows)+1)
	rows = append(rows, Header)
	return append(rows, sampleRows...)
}

// Sample returns the import template in the given format.
func Sample(format string) (File, error) {
	return build(format, "sample_leads", SampleRows())
}

// Leads renders leads in the given format.
func Leads(format string, leads []lead.Lead) (File, error) {
	return build(format, "leads", LeadRows(leads))
}

func build(format, basename string, rows [][]string) (File, error) {
	switch format {
	case FormatCSV:
		return File{Content: CSV(rows), Filename: basename + ".csv", Encoding: EncodingUTF8}, nil
	case FormatXLSX:
		b, err := XLSX(rows)
		if err != nil {
			return File{}, err
		}
		return File{
			Content:  base64.StdEncoding.EncodeToString(b),
			Filename: basename + ".xlsx",
			Encoding: EncodingBase64,
		}, nil
	default:
		return File{}, ErrUnknownFormat
	}
}

// CSV renders rows with a UTF-8 BOM, every cell quoted, rows joined by "\n".
func CSV(rows [][]string) string {
	var sb strings.Builder
	sb.WriteString(bom)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		for j, cell := range row {
			if j > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(`"` + strings.ReplaceAll(cell, `"`, `""`) + `"`)
		}
	}
	return sb.String()
}

// XLSX renders rows in the first sheet of a new workbook.
func XLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, errors.Wrap(err, "computing cell name")
		}
		values := make([]interface{}, 0, len(row))
		for _, v := range row {
			values = append(values, v)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

// LeadRows renders leads with the import columns followed by status, next action and creation date.
func LeadRows(leads []lead.Lead) [][]string {
	rows := make([][]string, 0, len(leads)+1)
	rows = append(rows, exportHeader)
	for _, l := range leads {
		var nextAction string
		if l.NextActionAt.Valid {
			nextAction = l.NextActionAt.Time.UTC().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			l.Name, l.Company.String, l.Phone, l.Email.String, l.Prefecture.String, l.Industry.String, l.Memo.String,
			l.Status, nextAction, l.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	return rows
}

// Parse reads the rows of an uploaded spreadsheet.
func Parse(format string, r io.Reader) ([][]string, error) {
	switch format {
	case FormatCSV:
		return parseCSV(r)
	case FormatXLSX:
		return parseXLSX(r)
	default:
		return nil, ErrUnknownFormat
	}
}

func parseCSV(r io.Reader) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(b, []byte(bom))))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parsing csv")
	}
	return rows, nil
}

func parseXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening xlsx")
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(err, "reading xlsx rows")
	}
	return rows, nil
}

// LeadsFromRows maps spreadsheet rows laid out like the import template to new leads.
// The first row is the header. Rows missing a name or phone are skipped.
func LeadsFromRows(rows [][]string) ([]lead.NewLead, error) {
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}
	leads := make([]lead.NewLead, 0, len(rows)-1)
	for _, row := range rows[1:] {
		nl := lead.NewLead{
			Name:       column(row, 0),
			Company:    column(row, 1),
			Phone:      column(row, 2),
			Email:      column(row, 3),
			Prefecture: column(row, 4),
			Industry:   column(row, 5),
			Memo:       column(row, 6),
		}
		nl.Clean()
		if nl.Name == "" || nl.Phone == "" {
			continue
		}
		leads = append(leads, nl)
	}
	return leads, nil
}

func column(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
