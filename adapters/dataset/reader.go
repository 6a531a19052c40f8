package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"abtester/internal"
	"abtester/internal/errors"
)

// File types understood by DataReader
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string
	logger   *internal.Logger
}

// NewDataReader creates a reader for path; the file type is taken from the extension
func NewDataReader(filePath string) *DataReader {
	return &DataReader{
		filePath: filePath,
		fileType: DetectFileType(filePath),
		logger:   internal.DefaultLogger,
	}
}

// WithLogger replaces the reader's logger
func (r *DataReader) WithLogger(logger *internal.Logger) *DataReader {
	r.logger = logger
	return r
}

// DetectFileType maps a file extension to a file type. Anything but .csv is
// treated as a workbook.
func DetectFileType(filePath string) string {
	if strings.EqualFold(filepath.Ext(filePath), ".csv") {
		return FileTypeCSV
	}
	return FileTypeXLSX
}

// ReadData reads the file into a Table
func (r *DataReader) ReadData() (*Table, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.DatasetError(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath), err)
	}

	switch r.fileType {
	case FileTypeCSV:
		file, err := os.Open(r.filePath)
		if err != nil {
			return nil, errors.DatasetError("failed to open CSV file", err)
		}
		defer file.Close()
		return r.ReadCSV(file)
	case FileTypeXLSX:
		f, err := excelize.OpenFile(r.filePath)
		if err != nil {
			return nil, errors.DatasetError("failed to open Excel file", err)
		}
		defer f.Close()
		return r.readWorkbook(f)
	}
	return nil, errors.DatasetError(fmt.Sprintf("unsupported file type: %s", r.fileType), nil)
}

// ReadCSV parses CSV content from src
func (r *DataReader) ReadCSV(src io.Reader) (*Table, error) {
	readStart := time.Now()
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.DatasetError("failed to read CSV file", err)
	}
	r.logger.Debug("[DataReader] CSV read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// ReadXLSX parses a workbook from src
func (r *DataReader) ReadXLSX(src io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.DatasetError("failed to open Excel file", err)
	}
	defer f.Close()
	return r.readWorkbook(f)
}

// readWorkbook reads the first sheet of an open workbook
func (r *DataReader) readWorkbook(f *excelize.File) (*Table, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.DatasetError("workbook has no sheets", nil)
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("failed to read %s", sheet), err)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// processRows converts raw string rows into a Table
func (r *DataReader) processRows(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, errors.DatasetError("file must have at least a header row and one data row", nil)
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRow, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Debug("[DataReader] %s processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &Table{Headers: headers, Rows: dataRows}, nil
}
