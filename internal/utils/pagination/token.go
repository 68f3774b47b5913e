package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// Cursor is the keyset position of the last row on a page: rows are ordered by
// transaction date, then by line id.
type Cursor struct {
	TransactionDate time.Time
	LineID          int64
}

// After reports whether a row at (date, lineID) sorts strictly after the cursor.
func (c Cursor) After(date time.Time, lineID int64) bool {
	if date.Equal(c.TransactionDate) {
		return lineID > c.LineID
	}
	return date.After(c.TransactionDate)
}

// EncodeToken creates an opaque page token from a transaction date and line id.
func EncodeToken(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%d", c.TransactionDate.Format(timeFormat), c.LineID)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}

	date, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (transaction date parse): %w", err)
	}
	lineID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (line id parse): %w", err)
	}

	return Cursor{TransactionDate: date, LineID: lineID}, nil
}

// DecodeOptionalToken decodes a token when one was supplied.
func DecodeOptionalToken(token *string) (*Cursor, error) {
	if token == nil || *token == "" {
		return nil, nil
	}
	c, err := DecodeToken(*token)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
