// Package proxysession implements the long-lived per-connection pump that
// couples a WebSocket peer to a child process's stdio: spec component E.
// Ported from original_source/src/api/proxy.rs's connected(), which
// multiplexes client messages, server frames, and an inactivity timer
// with futures::select!; this package reaches for the Go-idiomatic
// substitute of one goroutine per input source feeding a single select
// loop over channels and a time.Timer.
package proxysession

import (
	stderrors "errors"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/nerved-io/lsp-ws-proxy/internal/lspframe"
	"github.com/nerved-io/lsp-ws-proxy/internal/lspmsg"
	"github.com/nerved-io/lsp-ws-proxy/internal/proxylog"
	"github.com/nerved-io/lsp-ws-proxy/internal/remap"
)

// childExitGrace is how long Run waits for the child to exit on its own
// after an interrupt signal before escalating to an unconditional kill,
// so well-mannered servers get a chance to flush their own shutdown path.
const childExitGrace = 2 * time.Second

// wsConn is the subset of *websocket.Conn the pump needs, kept narrow so
// tests can supply a fake.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// Run spawns cfg.Command as a child process and pumps LSP messages
// between conn and the child's stdio until the client disconnects, the
// child exits, or cfg.Timeout elapses with no traffic in either
// direction. The child is always killed before Run returns, regardless
// of which of those three conditions ended the session.
func Run(conn wsConn, cfg Config, log *proxylog.Logger) error {
	log = log.With(uuid.New().String())
	log.Info("starting %s in %s", cfg.Command[0], cfg.Cwd)

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "proxysession: stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "proxysession: stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "proxysession: starting %s", cfg.Command[0])
	}

	p := &pump{conn: conn, stdin: stdin, cfg: cfg, log: log}
	runErr := p.run(stdout)

	shutdown(cmd, log)

	return runErr
}

// shutdown asks the child to exit, waits up to childExitGrace, and kills
// it outright if it hasn't. Signal/Kill errors never abort shutdown: by
// the time shutdown runs, the session is ending regardless of whether the
// child cooperates. They are combined and logged at debug level so a
// failed kill isn't silently lost.
func shutdown(cmd *exec.Cmd, log *proxylog.Logger) {
	if cmd.Process == nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var signalErrs *multierror.Error
	signalErrs = multierror.Append(signalErrs, cmd.Process.Signal(os.Interrupt))

	select {
	case <-done:
	case <-time.After(childExitGrace):
		log.Warning("child did not exit within grace period, killing")
		signalErrs = multierror.Append(signalErrs, cmd.Process.Kill())
		<-done
	}

	if err := signalErrs.ErrorOrNil(); err != nil {
		log.Debug("child shutdown signals: %v", err)
	}
}

type clientKind int

const (
	clientMessage clientKind = iota
	clientInvalid
	clientClose
	clientEOF
)

type clientEvent struct {
	kind clientKind
	msg  *lspmsg.Message
	text string
}

type serverEvent struct {
	text string
	err  error
	eof  bool
}

type pump struct {
	conn  wsConn
	stdin io.WriteCloser
	cfg   Config
	log   *proxylog.Logger
}

func (p *pump) run(stdout io.Reader) error {
	clientCh := make(chan clientEvent)
	serverCh := make(chan serverEvent)

	go p.pumpClient(clientCh)
	go p.pumpServer(stdout, serverCh)

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-clientCh:
			if err := p.handleClientEvent(ev); err != nil {
				return err
			}
			if ev.kind == clientEOF {
				p.log.Info("connection closed")
				return nil
			}
			resetTimer(timer, p.cfg.Timeout)

		case ev := <-serverCh:
			if ev.eof {
				p.log.Error("server process exited unexpectedly")
				p.closeClient()
				return errors.New("proxysession: child process exited unexpectedly")
			}
			if ev.err != nil {
				p.log.Error("%s", ev.err)
				resetTimer(timer, p.cfg.Timeout)
				continue
			}
			if err := p.handleFromServer(ev.text); err != nil {
				return err
			}
			resetTimer(timer, p.cfg.Timeout)

		case <-timer.C:
			p.log.Info("inactivity timeout reached, closing")
			p.closeClient()
			return nil
		}
	}
}

func (p *pump) closeClient() {
	_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (p *pump) handleClientEvent(ev clientEvent) error {
	switch ev.kind {
	case clientMessage:
		return p.handleFromClient(ev.msg)

	case clientInvalid:
		p.log.Warning("-> %s", ev.text)
		return p.writeToChild(ev.text)

	case clientClose:
		p.log.Info("received close message")
		return nil

	case clientEOF:
		return nil

	default:
		return nil
	}
}

func (p *pump) handleFromClient(msg *lspmsg.Message) error {
	if p.cfg.Remap {
		if err := remap.Apply(msg, p.cfg.Cwd); err != nil {
			return errors.Wrap(err, "proxysession: remap from client")
		}
		p.log.Debug("remapped relative URI from client")
	}
	if p.cfg.Sync {
		if err := p.maybeWriteTextDocument(msg); err != nil {
			return errors.Wrap(err, "proxysession: sync to disk")
		}
	}
	p.log.Debug("-> %s", msg.String())
	return p.writeToChild(msg.String())
}

func (p *pump) handleFromServer(text string) error {
	out := text
	if p.cfg.Remap {
		msg, err := lspmsg.Parse([]byte(text))
		if err != nil {
			p.log.Warning("<- %s", text)
			return p.writeToClient(text)
		}
		if err := remap.Apply(msg, p.cfg.Cwd); err != nil {
			return errors.Wrap(err, "proxysession: remap from server")
		}
		p.log.Debug("remapped relative URI from server")
		out = msg.String()
	}
	p.log.Debug("<- %s", out)
	return p.writeToClient(out)
}

func (p *pump) writeToChild(text string) error {
	if _, err := p.stdin.Write(lspframe.Encode(text)); err != nil {
		return errors.Wrap(err, "proxysession: writing to child stdin")
	}
	return nil
}

func (p *pump) writeToClient(text string) error {
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return errors.Wrap(err, "proxysession: writing to client")
	}
	return nil
}

// maybeWriteTextDocument mirrors a saved document's full text to disk
// when a textDocument/didSave notification carries one, ported from
// maybe_write_text_document. It is a no-op for any other message, or for
// a didSave whose URI isn't an absolute file:// URI (e.g. remap is off
// and the client still addresses it by source:// scheme).
func (p *pump) maybeWriteTextDocument(msg *lspmsg.Message) error {
	if msg.Kind != lspmsg.KindNotification || msg.Method != "textDocument/didSave" {
		return nil
	}

	parsed := gjson.ParseBytes(msg.Raw)
	text := parsed.Get("params.text")
	if !text.Exists() {
		return nil
	}

	uriStr := parsed.Get("params.textDocument.uri").String()
	u, err := url.Parse(uriStr)
	if err != nil || u.Scheme != "file" {
		return nil
	}

	path := u.Path
	p.log.Debug("writing to %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text.String()), 0o644)
}

func (p *pump) pumpClient(out chan<- clientEvent) {
	defer close(out)
	for {
		mt, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				out <- clientEvent{kind: clientClose}
			}
			out <- clientEvent{kind: clientEOF}
			return
		}
		if mt != websocket.TextMessage {
			continue // binary/ping/pong frames carry no LSP meaning
		}

		msg, perr := lspmsg.Parse(data)
		if perr != nil {
			out <- clientEvent{kind: clientInvalid, text: string(data)}
			continue
		}
		out <- clientEvent{kind: clientMessage, msg: msg}
	}
}

func (p *pump) pumpServer(stdout io.Reader, out chan<- serverEvent) {
	defer close(out)
	codec := lspframe.NewCodec()
	buf := make([]byte, 64*1024)

	for {
		payload, err := codec.Decode()
		switch {
		case err == nil:
			out <- serverEvent{text: payload}

		case stderrors.Is(err, lspframe.ErrIncomplete):
			n, rerr := stdout.Read(buf)
			if n > 0 {
				codec.Feed(buf[:n])
			}
			if rerr != nil {
				out <- serverEvent{eof: true}
				return
			}

		default:
			out <- serverEvent{err: err}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
