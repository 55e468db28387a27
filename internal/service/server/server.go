package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"wallet_chat/internal/model"
	"wallet_chat/internal/service/payment"
	"wallet_chat/internal/service/realtime"
	"wallet_chat/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type (
	AuthService interface {
		RequestChallenge(ctx context.Context, identity string) (string, error)
		VerifyChallenge(ctx context.Context, identity, sig string) (*model.Credential, error)
		ValidateToken(token string) (*model.Credential, error)
		IsSessionActive(ctx context.Context, walletRef string) (*model.SessionStatus, error)
	}

	KeyDirectory interface {
		RegisterPublicKey(ctx context.Context, identity, publicKey string) error
		LookupPublicKey(ctx context.Context, identity string) (string, error)
	}

	ConversationStore interface {
		AppendMessage(ctx context.Context, from, to, content, contentRef string) (*model.Message, error)
		GetConversation(ctx context.Context, conversationID, wallet string) ([]*model.Message, error)
		MarkRead(ctx context.Context, conversationID, recipient string) (int, error)
		ListContacts(ctx context.Context, identity string) ([]*model.ContactSummary, error)
	}

	BlobStore interface {
		Put(ctx context.Context, data []byte) (string, error)
		Get(ctx context.Context, ref string) ([]byte, error)
	}

	PaymentGateway interface {
		ConfirmAndExtend(ctx context.Context, walletRef string, proof *payment.Proof) (time.Time, error)
	}

	Services struct {
		Auth     AuthService
		Keys     KeyDirectory
		Chat     ConversationStore
		Blobs    BlobStore
		Payments PaymentGateway
		Hub      *realtime.Hub
	}

	HttpServer struct {
		addr           string
		allowedOrigins map[string]struct{}
		svc            Services
		upgrader       websocket.Upgrader
		srv            *http.Server
	}
)

func NewHttpServer(addr string, allowedOrigins []string, svc Services) *HttpServer {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	if svc.Hub == nil {
		svc.Hub = realtime.NewHub()
	}

	s := &HttpServer{
		addr:           addr,
		allowedOrigins: origins,
		svc:            svc,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HttpServer) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/nonce", s.RequestNonce()).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", s.VerifySignature()).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.Me()).Methods(http.MethodGet)

	r.HandleFunc("/profile/publicKey", s.RegisterPublicKey()).Methods(http.MethodPost)
	r.HandleFunc("/profile/{wallet}/publicKey", s.GetPublicKey()).Methods(http.MethodGet)

	r.HandleFunc("/messages/send", s.SendMessage()).Methods(http.MethodPost)
	r.HandleFunc("/messages/read", s.MarkRead()).Methods(http.MethodPost)
	r.HandleFunc("/messages/upload", s.Upload()).Methods(http.MethodPost)
	r.HandleFunc("/messages/upload/{ipfsHash}", s.Download()).Methods(http.MethodGet)
	r.HandleFunc("/messages/{conversationId}", s.GetConversation()).Methods(http.MethodGet)
	r.HandleFunc("/user/{wallet}/conversations", s.ListContacts()).Methods(http.MethodGet)

	r.HandleFunc("/session/{walletId}", s.SessionStatus()).Methods(http.MethodGet)
	r.HandleFunc("/payment/pay-hourly", s.PayHourly()).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.HandleWS()).Methods(http.MethodGet)

	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Use(s.cors)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most shutdownTimeout and disconnects every websocket client.
func (s *HttpServer) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.svc.Hub.Close()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
		return err
	}
	log.Info("http server stopped")
	return nil
}

func (s *HttpServer) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if _, ok := s.allowedOrigins["*"]; ok {
		return true
	}
	_, ok := s.allowedOrigins[origin]
	return ok
}

func (s *HttpServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}
