package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput writes one file per http exchange into dir, the
// directory is created when it doesn't exist yet.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}

// RedactBody marks request paths whose bodies must never be dumped
// (login payloads carry passwords).
type RedactBody func(req *resty.Request) bool

type instrumentCtx struct {
	prefix    string
	output    InstrumentOutput
	redact    RedactBody
	idcounter *uint64
}

// InstrumentClient dumps every request/response pair the client makes to
// `output`. credential headers are always redacted. `output` can be nil,
// in which case this is a no-op.
func InstrumentClient(client *resty.Client, prefix string, output InstrumentOutput, redact RedactBody) {
	if output == nil {
		return
	}
	var idcounter uint64
	i := instrumentCtx{
		prefix:    prefix,
		output:    output,
		redact:    redact,
		idcounter: &idcounter,
	}
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) nextId(method, url string) string {
	n := atomic.AddUint64(i.idcounter, 1)
	path := url
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	path = strings.NewReplacer("/", "_", "?", "_", "&", "_", ":", "_").Replace(path)
	if len(path) > 80 {
		path = path[:80]
	}
	return fmt.Sprintf("%s-%03d-%s-%s.txt", i.prefix, n, strings.ToLower(method), path)
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	if res.Request.RawRequest == nil {
		return nil
	}
	redactBody := i.redact != nil && i.redact(res.Request)
	id := i.nextId(res.Request.Method, res.Request.URL)
	i.output.Write(id, formatHttpMessage(res, redactBody))
	slog.DebugContext(
		res.Request.Context(), "dumped http exchange",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"message_id", id,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	id := i.nextId(req.Method, req.URL)
	i.output.Write(id, fmt.Sprintf("---- REQUEST ----\n\n%s %s\n\n---- ERROR ----\n\n%s", req.Method, req.URL, err.Error()))
}
