package engine

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/valyala/fasthttp"

	"github.com/blazehttp/blazefs/internal/config"
)

// Pipeline is the per-request state machine. Its Server header value
// is injected by the caller (typically version.ServerHeader(),
// "blazefs/<version>") and stored so it needn't be recomputed per
// request.
type Pipeline struct {
	Cfg     *config.Config
	Fs      afero.Fs
	Ignorer *Ignorer
	Server  string // Server header value, e.g. "blazefs/0.1.0"
	OnLog   func(entry AccessLogEntry, when time.Time, bytesSent int64)
}

// NewPipeline builds a request pipeline bound to a shared, read-only
// Config, filesystem, and compiled gitignore.
func NewPipeline(cfg *config.Config, fs afero.Fs, ignorer *Ignorer, server string, onLog func(AccessLogEntry, time.Time, int64)) *Pipeline {
	return &Pipeline{Cfg: cfg, Fs: fs, Ignorer: ignorer, Server: server, OnLog: onLog}
}

// Handle implements the §4.7 request state machine as a
// fasthttp.RequestHandler.
func (p *Pipeline) Handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	method := string(ctx.Method())
	requestURI := string(ctx.RequestURI())
	protoVer := "1.1"
	if !ctx.Request.Header.IsHTTP11() {
		protoVer = "1.0"
	}

	entry := AccessLogEntry{
		RemoteIP:  RealIP(ctx),
		Method:    method,
		URI:       requestURI,
		ProtoVer:  protoVer,
		UserAgent: string(ctx.Request.Header.UserAgent()),
	}

	// Step 1: seed response.
	ctx.Response.Header.Set("Server", p.Server)
	if p.Cfg.CORS {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Range, Content-Type, Accept, Origin")
	}
	if p.Cfg.COI {
		ctx.Response.Header.Set("Cross-Origin-Embedder-Policy", "require-corp")
		ctx.Response.Header.Set("Cross-Origin-Opener-Policy", "same-origin")
	}

	resolved, status, ok := p.resolvePath(ctx)
	if !ok {
		entry.Status = status
		p.sendCanned(ctx, status, entry, start)
		return
	}

	action, actionErr := p.selectAction(ctx, resolved)
	if actionErr {
		entry.Status = 500
		p.sendCanned(ctx, 500, entry, start)
		return
	}

	fi, statErr := p.Fs.Stat(resolved)
	notExist := statErr != nil
	hidden := !notExist && IsRelativelyHidden(relOrSelf(p.Cfg.Root, resolved)) && !p.Cfg.All
	ignored := !notExist && p.Cfg.Ignore && p.Ignorer.MatchesPath(relOrSelf(p.Cfg.Root, resolved))
	if notExist || hidden || ignored {
		entry.Status = 404
		p.sendCanned(ctx, 404, entry, start)
		return
	}

	if !p.Cfg.FollowLinks {
		canon, err := filepath.EvalSymlinks(resolved)
		if err != nil {
			canon = resolved
		}
		if !withinRoot(canon, p.Cfg.Root) {
			entry.Status = 403
			p.sendCanned(ctx, 403, entry, start)
			return
		}
	}

	switch action {
	case ActionListDir:
		p.serveListDir(ctx, resolved, entry, start)
	case ActionDownloadFile:
		p.serveDownloadFile(ctx, resolved, fi, method, entry, start)
	case ActionDownloadZip:
		p.serveDownloadZip(ctx, resolved, entry, start)
	}
}

// resolvePath implements §4.7 step 2.
func (p *Pipeline) resolvePath(ctx *fasthttp.RequestCtx) (resolved string, status int, ok bool) {
	reqPath := string(ctx.Path())
	if !utf8.ValidString(reqPath) {
		return "", 500, false
	}
	decoded, err := url.PathUnescape(reqPath)
	if err != nil {
		return "", 500, false
	}

	if p.Cfg.PathPrefix != "" {
		if !strings.HasPrefix(decoded, p.Cfg.PathPrefix) {
			return "", 404, false
		}
		decoded = strings.TrimPrefix(decoded, p.Cfg.PathPrefix)
	}

	decoded = strings.TrimPrefix(decoded, "/")
	joined := filepath.Join(p.Cfg.Root, filepath.FromSlash(decoded))

	if p.Cfg.RenderIndex {
		if fi, err := p.Fs.Stat(joined); err == nil && fi.IsDir() {
			joined = filepath.Join(joined, "index.html")
		}
	}

	return joined, 0, true
}

// selectAction implements §4.7 step 3. actionErr is true when the
// query is malformed and must surface as 500.
func (p *Pipeline) selectAction(ctx *fasthttp.RequestCtx, resolved string) (Action, bool) {
	actionParam := string(ctx.QueryArgs().Peek("action"))
	if actionParam == "" {
		fi, err := p.Fs.Stat(resolved)
		if err == nil && fi.IsDir() {
			return ActionListDir, false
		}
		return ActionDownloadFile, false
	}
	if actionParam != "zip" {
		return 0, true
	}
	fi, err := p.Fs.Stat(resolved)
	if err != nil || !fi.IsDir() {
		return 0, true
	}
	return ActionDownloadZip, false
}

func (p *Pipeline) serveListDir(ctx *fasthttp.RequestCtx, dirPath string, entry AccessLogEntry, start time.Time) {
	body, err := SendDir(p.Fs, p.Ignorer, p.Cfg.Root, dirPath, p.Cfg.PathPrefix, p.Cfg.All, p.Cfg.Ignore, p.Cfg.UserStyle, p.Cfg.Watch)
	if err != nil {
		entry.Status = 500
		p.sendCanned(ctx, 500, entry, start)
		return
	}
	entry.Status = 200
	p.writeBody(ctx, 200, "text/html; charset=utf-8", int64(len(body)), nil, body, entry, start)
}

func (p *Pipeline) serveDownloadFile(ctx *fasthttp.RequestCtx, filePath string, fi os.FileInfo, method string, entry AccessLogEntry, start time.Time) {
	ctx.Response.Header.Set("Cache-Control", "public, max-age="+strconv.FormatUint(p.Cfg.CacheMaxAge, 10))

	mtime := fi.ModTime().Unix()
	size := fi.Size()
	validator := Validator{ETag: MakeETag(mtime, size), LastModified: mtime}

	cond := ConditionalRequest{
		IfMatch:           string(ctx.Request.Header.Peek("If-Match")),
		IfNoneMatch:       string(ctx.Request.Header.Peek("If-None-Match")),
		IfModifiedSince:   string(ctx.Request.Header.Peek("If-Modified-Since")),
		IfUnmodifiedSince: string(ctx.Request.Header.Peek("If-Unmodified-Since")),
		Method:            method,
	}

	setValidatorHeaders := func() {
		ctx.Response.Header.Set("ETag", validator.ETag)
		ctx.Response.Header.Set("Last-Modified", time.Unix(validator.LastModified, 0).UTC().Format(time.RFC1123))
	}

	if IsPreconditionFailed(cond, validator) {
		// Spec §4.7 step 6g emits Last-Modified/ETag on "all non-304/412
		// cases" — 412 is excluded, matching serve.rs's precondition_failed
		// which returns immediately with no validator headers.
		entry.Status = 412
		p.sendCanned(ctx, 412, entry, start)
		return
	}

	if IsFresh(cond, validator) {
		setValidatorHeaders()
		ctx.SetStatusCode(304)
		entry.Status = 304
		p.finishSized(ctx, 0, entry, start)
		return
	}

	rangeHeader := string(ctx.Request.Header.Peek("Range"))
	ifRange := string(ctx.Request.Header.Peek("If-Range"))

	mimeType, hasMime := Mime(filePath)
	if !hasMime {
		mimeType = "text/plain; charset=utf-8"
	} else if isTextLike(mimeType) && !strings.Contains(mimeType, "charset") {
		mimeType += "; charset=utf-8"
	}

	if rangeHeader != "" && IsRangeFresh(true, ifRange, validator) {
		if cr, ok := IsSatisfiableRange(rangeHeader, size); ok {
			setValidatorHeaders()
			ctx.Response.Header.Set("Content-Range", "bytes "+strconv.FormatInt(cr.Start, 10)+"-"+strconv.FormatInt(cr.End, 10)+"/"+strconv.FormatInt(cr.Complete, 10))
			entry.Status = 206
			length := cr.End - cr.Start + 1
			p.writeBody(ctx, 206, mimeType, length, func(w io.Writer) error {
				return SendFileRange(p.Fs, filePath, cr.Start, cr.End, w)
			}, nil, entry, start)
			return
		}
	}

	setValidatorHeaders()
	entry.Status = 200
	p.writeBody(ctx, 200, mimeType, size, func(w io.Writer) error {
		_, err := SendFile(p.Fs, filePath, w)
		return err
	}, nil, entry, start)
}

func (p *Pipeline) serveDownloadZip(ctx *fasthttp.RequestCtx, dirPath string, entry AccessLogEntry, start time.Time) {
	f, size, err := SendDirAsZip(p.Fs, dirPath, p.Ignorer, p.Cfg.All, p.Cfg.Ignore)
	if err != nil {
		entry.Status = 500
		p.sendCanned(ctx, 500, entry, start)
		return
	}
	dirName := Filename(dirPath)
	if dirName == "" {
		dirName = "root"
	}
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+dirName+`.zip"`)
	entry.Status = 200
	p.writeBody(ctx, 200, "application/octet-stream", size, func(w io.Writer) error {
		defer func() {
			f.Close()
			p.Fs.Remove(f.Name())
		}()
		_, err := io.CopyBuffer(w, f, make([]byte, copyBufSize))
		return err
	}, nil, entry, start)
}

// writeBody implements §4.7 steps 7-10: MIME is set by the caller,
// compression is applied when eligible, Content-Length is set only
// when uncompressed and a size hint exists, and the access log sink
// wraps the final stream. Exactly one of producer/staticBody is set.
func (p *Pipeline) writeBody(ctx *fasthttp.RequestCtx, status int, mimeType string, sizeHint int64, producer func(io.Writer) error, staticBody []byte, entry AccessLogEntry, start time.Time) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", mimeType)
	ctx.Response.Header.Set("Accept-Ranges", "bytes")

	encHeader := string(ctx.Request.Header.Peek("Accept-Encoding"))
	enc := EncodingIdentity
	if ShouldCompress(status, mimeType, p.Cfg.Compress) {
		enc = NegotiateEncoding(encHeader)
	}

	compressing := enc != EncodingIdentity

	if compressing {
		ctx.Response.Header.Set("Content-Encoding", enc.String())
		ctx.Response.Header.Set("Vary", "Accept-Encoding")
	} else if sizeHint >= 0 {
		ctx.Response.Header.SetContentLength(int(sizeHint))
	}

	pr, pw := io.Pipe()
	sink := NewCountingSink(pw, -1, func(bytesSent int64) {
		if p.Cfg.Log && p.OnLog != nil {
			p.OnLog(entry, time.Now(), bytesSent)
		}
	})
	writer := NewEncoder(sink, enc)

	go func() {
		var err error
		if staticBody != nil {
			_, err = writer.Write(staticBody)
		} else if producer != nil {
			err = producer(writer)
		}
		writer.Close()
		sink.Close()
		pw.CloseWithError(err)
	}()

	if compressing || sizeHint < 0 {
		ctx.SetBodyStream(pr, -1)
	} else {
		ctx.SetBodyStream(pr, int(sizeHint))
	}
}

// finishSized emits a response with no body (304/empty 4xx/5xx edge
// cases) and still fires the access log with the known byte count.
func (p *Pipeline) finishSized(ctx *fasthttp.RequestCtx, bytesSent int64, entry AccessLogEntry, start time.Time) {
	if p.Cfg.Log && p.OnLog != nil {
		p.OnLog(entry, time.Now(), bytesSent)
	}
}

// sendCanned emits one of the Response Factory's fixed bodies (§4.6).
func (p *Pipeline) sendCanned(ctx *fasthttp.RequestCtx, status int, entry AccessLogEntry, start time.Time) {
	ctx.Response.Header.Set("Server", p.Server)
	ctx.SetStatusCode(status)
	body := CannedBody(status)
	ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Response.Header.SetContentLength(len(body))
	ctx.SetBodyString(body)
	if p.Cfg.Log && p.OnLog != nil {
		p.OnLog(entry, time.Now(), int64(len(body)))
	}
}

func relOrSelf(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	if rel == "." {
		// The root itself has no components, so it is never hidden.
		return ""
	}
	return filepath.ToSlash(rel)
}

func withinRoot(candidate, root string) bool {
	candidate = filepath.Clean(candidate)
	root = filepath.Clean(root)
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}

func isTextLike(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.HasPrefix(base, "text/") ||
		base == "application/json" ||
		base == "application/xml" ||
		base == "application/javascript"
}
