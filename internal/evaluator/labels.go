package evaluator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Accepted header aliases for the ground truth file, tried in order. Matching
// is case-insensitive and ignores a UTF-8 BOM on the first header.
var (
	idAliases    = []string{"id", "id_message", "idcomment", "id_comment"}
	labelAliases = []string{"label", "type_comment", "target"}
)

// ParseLabels reads a ground truth CSV and returns comment id -> label.
// Rows missing either value are skipped; an empty result is
// ErrMalformedLabels. Files are decoded as UTF-8 with a cp1251 fallback,
// since exports from spreadsheet tools in the wild still use it.
func ParseLabels(payload []byte) (map[int]int, error) {
	text, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, ErrMalformedLabels
	}

	idCol := resolveColumn(header, idAliases)
	labelCol := resolveColumn(header, labelAliases)
	if idCol < 0 || labelCol < 0 {
		return nil, ErrMalformedLabels
	}

	labels := make(map[int]int)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read label row: %w", err)
		}
		if idCol >= len(record) || labelCol >= len(record) {
			continue
		}

		id, err := parseInt(record[idCol])
		if err != nil {
			continue
		}
		label, err := parseInt(record[labelCol])
		if err != nil {
			continue
		}
		labels[id] = label
	}

	if len(labels) == 0 {
		return nil, ErrMalformedLabels
	}
	return labels, nil
}

// resolveColumn returns the index of the first header matching any alias, or
// -1. Aliases are checked in priority order so "id" beats "id_comment" when
// both appear.
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

// parseInt accepts plain integers and float renderings like "1.0", which
// spreadsheet exports produce for integer columns.
func parseInt(val string) (int, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, fmt.Errorf("missing integer value")
	}
	if n, err := strconv.Atoi(val); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", val)
	}
	return int(f), nil
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
