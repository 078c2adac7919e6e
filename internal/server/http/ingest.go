package httpserver

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fastjson"

	"github.com/telepanel/telepanel/internal/record"
)

// maxIngestBody caps a single ingest request.
const maxIngestBody = 256 << 10

var errEmptyBody = errors.New("empty request body")

// parseIngestBody decodes one log record from the request body. Ingest is
// the hot path, so it parses with fastjson instead of encoding/json and
// tolerates both RFC3339 and unix-millisecond timestamps.
func parseIngestBody(r *http.Request) (record.Record, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		return record.Record{}, err
	}
	if len(body) == 0 {
		return record.Record{}, errEmptyBody
	}
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return record.Record{}, err
	}

	rec := record.Record{
		Level:    record.Level(string(v.GetStringBytes("level"))),
		Logger:   string(v.GetStringBytes("logger")),
		Message:  string(v.GetStringBytes("message")),
		Module:   string(v.GetStringBytes("module")),
		Function: string(v.GetStringBytes("function")),
		Line:     v.GetInt("line"),
		Path:     string(v.GetStringBytes("path")),
	}

	if ts := v.Get("timestamp"); ts != nil {
		switch ts.Type() {
		case fastjson.TypeString:
			t, err := time.Parse(time.RFC3339Nano, string(ts.GetStringBytes()))
			if err != nil {
				return record.Record{}, err
			}
			rec.Time = t
		case fastjson.TypeNumber:
			rec.Time = time.UnixMilli(ts.GetInt64())
		}
	}
	return rec, nil
}
