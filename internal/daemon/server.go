package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// RequestHandler is the subset of the Service the control surface
// dispatches onto. Narrowed to these methods so Server doesn't need to
// import internal/service directly.
type RequestHandler interface {
	Authorize(token string) error
	Start(ctx context.Context) error
	Stop()
	PauseForSystemSleep()
	ResumeAfterSystemWake(ctx context.Context)
	Suggest(ctx context.Context, req SuggestParams) (any, error)
	CreateContextPack(ctx context.Context, req CreateContextPackParams) (any, error)
	Preview(itemID string) (any, bool)
	Health() any
	StateSnapshot(ctx context.Context) (any, error)
	TriggerBackfill(ctx context.Context, limit int) (any, error)
	ListBackfillJobs(ctx context.Context) (any, error)
	PauseBackfill(ctx context.Context, jobID string) error
	ResumeBackfill(ctx context.Context, jobID string) error
	ConfigureScopes(roots []string)
	RunBenchmarkSample(ctx context.Context, queries []string) (any, error)
}

// Server listens on a Unix socket and dispatches JSON-RPC 2.0 requests
// to a RequestHandler, one connection-handling goroutine per accepted
// connection, mirroring server.go's accept loop and per-connection
// decode/dispatch/encode shape.
type Server struct {
	socketPath string
	authToken  string
	listener   net.Listener
	handler    RequestHandler
	logger     *slog.Logger

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer builds a Server listening on socketPath and dispatching onto
// handler. A nil logger falls back to slog.Default().
func NewServer(socketPath, authToken string, handler RequestHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{socketPath: socketPath, authToken: authToken, handler: handler, logger: logger}
}

// ListenAndServe starts the accept loop and blocks until ctx is
// cancelled or an unrecoverable listen error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	s.logger.Info("control surface listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

// Close stops the accept loop and closes the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		s.logger.Warn("failed to set connection deadline", "error", err)
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse("", ErrCodeParseError, "failed to parse request"))
		return
	}

	resp := s.handleRequest(ctx, req)
	_ = encoder.Encode(resp)
}

// handleRequest authenticates (ping excepted) and dispatches req onto
// the handler, translating errors.Kind values into JSON-RPC error codes.
func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	if req.Method == MethodPing {
		return NewSuccessResponse(req.ID, PingResult{Pong: true})
	}

	if s.authToken != "" {
		if err := s.handler.Authorize(req.AuthToken); err != nil {
			return NewErrorResponse(req.ID, ErrCodeUnauthorized, err.Error())
		}
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		return NewErrorResponse(req.ID, codeForError(err), err.Error())
	}
	return NewSuccessResponse(req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case MethodStart:
		return nil, s.handler.Start(ctx)
	case MethodStop:
		s.handler.Stop()
		return nil, nil
	case MethodPauseForSystemSleep:
		s.handler.PauseForSystemSleep()
		return nil, nil
	case MethodResumeAfterSystemWake:
		s.handler.ResumeAfterSystemWake(ctx)
		return nil, nil
	case MethodSuggest:
		var p SuggestParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.handler.Suggest(ctx, p)
	case MethodCreateContextPack:
		var p CreateContextPackParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.handler.CreateContextPack(ctx, p)
	case MethodPreview:
		var p PreviewParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		sug, ok := s.handler.Preview(p.ItemID)
		if !ok {
			return nil, nil
		}
		return sug, nil
	case MethodHealth:
		return s.handler.Health(), nil
	case MethodStateSnapshot:
		return s.handler.StateSnapshot(ctx)
	case MethodTriggerBackfill:
		var p TriggerBackfillParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.handler.TriggerBackfill(ctx, p.Limit)
	case MethodListBackfillJobs:
		return s.handler.ListBackfillJobs(ctx)
	case MethodPauseBackfill:
		var p BackfillJobParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, s.handler.PauseBackfill(ctx, p.JobID)
	case MethodResumeBackfill:
		var p BackfillJobParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, s.handler.ResumeBackfill(ctx, p.JobID)
	case MethodConfigureScopes:
		var p ConfigureScopesParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		s.handler.ConfigureScopes(p.Roots)
		return nil, nil
	case MethodRunBenchmarkSample:
		var p RunBenchmarkSampleParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.handler.RunBenchmarkSample(ctx, p.Queries)
	default:
		return nil, daemonerr.Invalid(fmt.Sprintf("method not found: %s", req.Method))
	}
}

// decodeParams round-trips req.Params (decoded into `any` by the
// envelope's own json.Decoder) through json.Marshal/Unmarshal into a
// typed params struct.
func decodeParams(params any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return daemonerr.Invalid("failed to encode params")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return daemonerr.Invalid("failed to decode params")
	}
	return nil
}

func codeForError(err error) int {
	switch daemonerr.KindOf(err) {
	case daemonerr.Unauthorized:
		return ErrCodeUnauthorized
	case daemonerr.MissingSuggestion:
		return ErrCodeMissingSuggestion
	case daemonerr.InvalidState:
		return ErrCodeInvalidState
	default:
		return ErrCodeInternalError
	}
}
