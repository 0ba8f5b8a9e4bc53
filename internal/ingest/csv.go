package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sentiment-backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoComments means the uploaded CSV contained no usable comment rows.
var ErrNoComments = errors.New("csv is empty or missing a comment column")

// Accepted header aliases, tried in order.
var (
	commentAliases = []string{"comment", "comment_clean", "text"}
	srcAliases     = []string{"src", "source"}
	timeAliases    = []string{"time", "timestamp"}
)

// ParseComments reads an uploaded comment CSV and returns raw comment rows
// for a freshly minted batch. Comment ids are assigned sequentially 1..N in
// file order; ids present in the file are ignored so the batch always has a
// dense, system-owned numbering. Rows without a comment value are skipped.
func ParseComments(payload []byte, batchID uuid.UUID, now time.Time) ([]*models.RawComment, error) {
	text, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, ErrNoComments
	}

	commentCol := resolveColumn(header, commentAliases)
	if commentCol < 0 {
		return nil, ErrNoComments
	}
	srcCol := resolveColumn(header, srcAliases)
	timeCol := resolveColumn(header, timeAliases)

	var rows []*models.RawComment
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read comment row: %w", err)
		}
		if commentCol >= len(record) {
			continue
		}
		comment := strings.TrimSpace(record[commentCol])
		if comment == "" {
			continue
		}

		var src *string
		if srcCol >= 0 && srcCol < len(record) && record[srcCol] != "" {
			s := record[srcCol]
			src = &s
		}

		rowTime := now
		if timeCol >= 0 && timeCol < len(record) {
			rowTime = parseTime(record[timeCol], now)
		}

		rows = append(rows, &models.RawComment{
			CommentID: len(rows) + 1,
			BatchID:   batchID,
			Comment:   comment,
			Src:       src,
			Time:      rowTime,
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoComments
	}
	return rows, nil
}

// ExportClassified renders classified rows as a CSV dump ordered the way the
// repository returned them (ascending comment id).
func ExportClassified(rows []*models.ClassifiedComment) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"id_comment", "id_batch", "comment_clean", "src", "time", "type_comment"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		src := ""
		if row.Src != nil {
			src = *row.Src
		}
		record := []string{
			strconv.Itoa(row.CommentID),
			row.BatchID.String(),
			row.CommentClean,
			src,
			row.Time.Format(time.RFC3339),
			strconv.Itoa(row.TypeComment),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resolveColumn(header []string, aliases []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "\ufeff"))
	}
	for _, alias := range aliases {
		for i, h := range normalized {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

// parseTime accepts RFC 3339 and date-only values, falling back to the
// ingest time the way the upload endpoint always has.
func parseTime(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.Location() == time.UTC {
				return t
			}
			return t.UTC()
		}
	}
	return fallback
}

func decodePayload(payload []byte) (string, error) {
	if utf8.Valid(payload) {
		return string(payload), nil
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(payload)
	if err != nil {
		return "", fmt.Errorf("file must be utf-8 or cp1251: %w", err)
	}
	return string(decoded), nil
}
