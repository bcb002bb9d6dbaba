package csvparser

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// SubscriberRow is one imported subscriber. Email comes from the "Email"
// column (case-insensitive); Name from an optional "Name" column.
type SubscriberRow struct {
	Email string
	Name  string
}

// ParseSubscriberRows parses a subscriber CSV. The header row must contain
// an Email column; rows with a blank or missing email are skipped.
//
// maxRows caps how many data rows are read (excluding the header).
func ParseSubscriberRows(r io.Reader, maxRows int) ([]SubscriberRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, errors.New("csv header row is empty")
	}

	emailIdx := -1
	nameIdx := -1
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if strings.EqualFold(h, "email") {
			emailIdx = i
		}
		if strings.EqualFold(h, "name") {
			nameIdx = i
		}
	}
	if emailIdx == -1 {
		return nil, errors.New("csv must contain an Email column")
	}

	if maxRows <= 0 {
		maxRows = 1000
	}

	rows := make([]SubscriberRow, 0)
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(headers) {
			// skip malformed row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" {
			continue
		}

		row := SubscriberRow{Email: email}
		if nameIdx != -1 {
			row.Name = strings.TrimSpace(record[nameIdx])
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New("csv must contain at least one data row")
	}

	return rows, nil
}
