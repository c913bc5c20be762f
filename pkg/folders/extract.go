package folders

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is an import file type
type Format string

const (
	FormatTXT  Format = "txt"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatDOCX Format = "docx"
)

var contentTypes = map[Format]string{
	FormatTXT:  "text/plain",
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var (
	// country code, serial with optional separators, optional kind code
	patentPattern = regexp.MustCompile(`\b[A-Z]{2}[ \-]?[0-9][0-9,./\-]{3,15}[0-9](?:[ \-]?[A-Z][0-9]?)?\b`)
	headerPattern = regexp.MustCompile(`(?i)patent|publication|number`)
)

// DetectFormat maps a file name to its import format
func DetectFormat(fileName string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	f := Format(ext)
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
	return f, nil
}

// ExtractPatentIDs reads an import file and returns the normalized patent numbers it contains,
// in first-seen order
func ExtractPatentIDs(fileName string, r io.Reader) ([]string, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatTXT:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file: %w", err)
		}
		return extractFromText(string(data)), nil

	case FormatCSV:
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		return extractFromTable(records), nil

	case FormatXLSX:
		book, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer book.Close()
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return []string{}, nil
		}
		rows, err := book.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
		}
		return extractFromTable(rows), nil

	case FormatDOCX:
		text, err := docxText(r)
		if err != nil {
			return nil, err
		}
		return extractFromText(text), nil
	}
	return nil, ErrUnsupportedFormat
}

func extractFromText(text string) []string {
	ids, _ := normalizePatentIDs(patentPattern.FindAllString(text, -1))
	return ids
}

// extractFromTable reads the first column whose header looks like a patent number column. Without
// such a header every cell is scanned.
func extractFromTable(rows [][]string) []string {
	if len(rows) == 0 {
		return []string{}
	}

	column := -1
	for i, cell := range rows[0] {
		if headerPattern.MatchString(cell) {
			column = i
			break
		}
	}

	var candidates []string
	if column >= 0 {
		for _, row := range rows[1:] {
			if column >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[column])
			if matches := patentPattern.FindAllString(cell, -1); len(matches) > 0 {
				candidates = append(candidates, matches...)
			} else if cell != "" {
				candidates = append(candidates, cell)
			}
		}
	} else {
		for _, row := range rows {
			for _, cell := range row {
				candidates = append(candidates, patentPattern.FindAllString(cell, -1)...)
			}
		}
	}

	ids, _ := normalizePatentIDs(candidates)
	return ids
}

// docxText returns the text of word/document.xml with one line per paragraph
func docxText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		var sb strings.Builder
		decoder := xml.NewDecoder(rc)
		for {
			tok, err := decoder.Token()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to parse document.xml: %w", err)
			}
			switch t := tok.(type) {
			case xml.CharData:
				sb.Write(t)
			case xml.EndElement:
				if t.Name.Local == "p" {
					sb.WriteByte('\n')
				}
			case xml.StartElement:
				if t.Name.Local == "tab" || t.Name.Local == "br" {
					sb.WriteByte(' ')
				}
			}
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("failed to open docx: word/document.xml missing")
}
