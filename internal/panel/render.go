package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/smart-extractor/backend/internal/models"
)

// Pretty re-indents a JSON document with two spaces and no trailing newline.
// Key order is kept; numbers and strings are written in their shortest form,
// so 1.50 renders as 1.5 and 1e2 as 100.
func Pretty(raw json.RawMessage) ([]byte, error) {
	var canonical bytes.Buffer
	if err := canonicalize(raw, &canonical); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, canonical.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func canonicalize(raw json.RawMessage, out *bytes.Buffer) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := writeValue(dec, out); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("invalid character after top-level value")
	}
	return nil
}

func writeValue(dec *json.Decoder, out *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		closing := byte('}')
		if v == '[' {
			closing = ']'
		}
		out.WriteByte(byte(v))
		for first := true; dec.More(); first = false {
			if !first {
				out.WriteByte(',')
			}
			if v == '{' {
				key, err := dec.Token()
				if err != nil {
					return err
				}
				writeString(out, key.(string))
				out.WriteByte(':')
			}
			if err := writeValue(dec, out); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		out.WriteByte(closing)
	case string:
		writeString(out, v)
	case json.Number:
		out.WriteString(formatNumber(v))
	case bool:
		out.WriteString(strconv.FormatBool(v))
	case nil:
		out.WriteString("null")
	}
	return nil
}

func writeString(out *bytes.Buffer, s string) {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.Encode(s)
	out.Truncate(out.Len() - 1)
}

// formatNumber writes n the way a double prints in JavaScript: plain
// digits between 1e-7 and 1e21, exponent form outside, null when the
// value does not fit a float64.
func formatNumber(n json.Number) string {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Render is the text shown in the result area.
func Render(raw json.RawMessage) string {
	if raw == nil {
		return models.NoDataPlaceholder
	}
	out, err := Pretty(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func errorRecord(msg string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(models.ErrorRecord{Error: msg}); err != nil {
		return json.RawMessage(`{"error":"` + models.UploadFailedNotice + `"}`)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
