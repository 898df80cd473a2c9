package fetcher

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"unicode"

	"github.com/rotisserie/eris"
)

// ErrObjectPayload is returned by DecodeRecords when the body holds a single
// JSON object where an array of records was expected.
var ErrObjectPayload = eris.New("json: object payload")

// DecodeRecords decodes a JSON array of records element by element, keeping
// numbers as json.Number. An empty body yields no records. When the body is
// a JSON object it is decoded into obj (if non-nil) and ErrObjectPayload is
// returned, which lets callers read error envelopes without a second request.
func DecodeRecords[T any](ctx context.Context, r io.Reader, obj any) ([]T, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "json: read payload")
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	switch first {
	case '{':
		if obj != nil {
			if err := dec.Decode(obj); err != nil {
				return nil, eris.Wrap(err, "json: decode object")
			}
		}
		return nil, ErrObjectPayload
	case '[':
	default:
		return nil, eris.Errorf("json: expected '[', got %q", first)
	}

	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "json: read opening token")
	}

	var out []T
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "json: context cancelled")
		}
		var rec T
		if err := dec.Decode(&rec); err != nil {
			return nil, eris.Wrapf(err, "json: decode element %d", len(out))
		}
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "json: read closing token")
	}
	return out, nil
}

// firstByte returns the first non-space byte of br without consuming it.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
