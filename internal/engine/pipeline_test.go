package engine

import (
	"io"
	"net"
	"testing"

	"github.com/spf13/afero"
	"github.com/valyala/fasthttp"

	"github.com/blazehttp/blazefs/internal/config"
)

func newTestPipeline(t *testing.T) (*Pipeline, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/srv/file.txt", []byte("01234567"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/srv/.hidden.html", []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Root:     "/srv",
		Bind:     "127.0.0.1",
		Port:     5000,
		Compress: true,
	}

	pipeline := NewPipeline(cfg, fs, &Ignorer{}, "blazefs/test", nil)
	return pipeline, fs
}

func newCtx(method, uri string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}, nil)
	return &ctx
}

func TestPipeline_S1_PlainGET(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := newCtx("GET", "/file.txt")

	p.Handle(ctx)

	if ctx.Response.StatusCode() != 200 {
		t.Fatalf("expected 200, got %d", ctx.Response.StatusCode())
	}
	body, err := io.ReadAll(ctx.Response.BodyStream())
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "01234567" {
		t.Fatalf("unexpected body: %q", body)
	}
	if got := string(ctx.Response.Header.Peek("Accept-Ranges")); got != "bytes" {
		t.Fatalf("expected Accept-Ranges: bytes, got %q", got)
	}
	if got := string(ctx.Response.Header.Peek("ETag")); got == "" {
		t.Fatal("expected an ETag header")
	}
}

func TestPipeline_S2_Range(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := newCtx("GET", "/file.txt")
	ctx.Request.Header.Set("Range", "bytes=1-4")

	p.Handle(ctx)

	if ctx.Response.StatusCode() != 206 {
		t.Fatalf("expected 206, got %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Header.Peek("Content-Range")); got != "bytes 1-4/8" {
		t.Fatalf("unexpected Content-Range: %q", got)
	}
	body, _ := io.ReadAll(ctx.Response.BodyStream())
	if string(body) != "1234" {
		t.Fatalf("unexpected range body: %q", body)
	}
}

func TestPipeline_S3_ConditionalNotModified(t *testing.T) {
	p, _ := newTestPipeline(t)

	first := newCtx("GET", "/file.txt")
	p.Handle(first)
	etag := string(first.Response.Header.Peek("ETag"))
	io.ReadAll(first.Response.BodyStream())

	second := newCtx("GET", "/file.txt")
	second.Request.Header.Set("If-None-Match", etag)
	p.Handle(second)

	if second.Response.StatusCode() != 304 {
		t.Fatalf("expected 304, got %d", second.Response.StatusCode())
	}
	if got := string(second.Response.Header.Peek("ETag")); got != etag {
		t.Fatalf("expected ETag echoed on 304, got %q", got)
	}
}

func TestPipeline_S4_HiddenRejected(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := newCtx("GET", "/.hidden.html")

	p.Handle(ctx)

	if ctx.Response.StatusCode() != 404 {
		t.Fatalf("expected 404, got %d", ctx.Response.StatusCode())
	}
	if string(ctx.Response.Body()) != "404 Not Found" {
		t.Fatalf("unexpected body: %q", ctx.Response.Body())
	}
}

func TestPipeline_S8_SymlinkEscape(t *testing.T) {
	// A symlink pointing outside the (OS) root must 403 when
	// follow_links is disabled. MemMapFs has no real symlinks, so this
	// exercises withinRoot directly against a path outside root to
	// confirm the escape gate's comparison logic.
	if withinRoot("/etc/passwd", "/srv") {
		t.Fatal("expected /etc/passwd to be reported outside /srv")
	}
	if !withinRoot("/srv/file.txt", "/srv") {
		t.Fatal("expected /srv/file.txt to be reported inside /srv")
	}
}
