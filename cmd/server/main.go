package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet_chat/internal/config"
	"wallet_chat/internal/repository/blob"
	"wallet_chat/internal/repository/challenge"
	"wallet_chat/internal/repository/message"
	"wallet_chat/internal/repository/publickey"
	"wallet_chat/internal/repository/session"
	"wallet_chat/internal/service/auth"
	"wallet_chat/internal/service/chat"
	"wallet_chat/internal/service/keydir"
	"wallet_chat/internal/service/payment"
	"wallet_chat/internal/service/realtime"
	redisSvc "wallet_chat/internal/service/redis"
	"wallet_chat/internal/service/server"
	"wallet_chat/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	challenges auth.ChallengeStore
	sessions   auth.SessionStore
	keys       keydir.KeyRepo
	messages   chat.MessageRepo
	blobs      server.BlobStore
	closers    []func(context.Context) error
}

type openStoresFunc func(ctx context.Context, cfg *config.Config) (*stores, error)

func main() {
	cfg, err := config.Load("server")
	if err != nil {
		panic(err)
	}
	if err := log.Init(cfg.Logger.Development, cfg.Logger.Level); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, initStores)
	stop()
	if err != nil {
		log.Error("server exited", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

// run owns every store it opens and closes them on all return paths.
func run(ctx context.Context, cfg *config.Config, openStores openStoresFunc) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer st.close()

	authSvc := auth.NewService(
		st.challenges,
		st.sessions,
		auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn),
		cfg.Auth.ChallengeTTL,
	)

	validator, err := initValidator(ctx, cfg.Payment, st)
	if err != nil {
		return fmt.Errorf("init payment validator: %w", err)
	}

	hub := realtime.NewHub()
	s := server.NewHttpServer(cfg.Server.Addr, cfg.Server.AllowedOrigins, server.Services{
		Auth:     authSvc,
		Keys:     keydir.NewDirectory(st.keys),
		Chat:     chat.NewStore(st.messages),
		Blobs:    st.blobs,
		Payments: payment.NewGateway(validator, authSvc, cfg.Session.GrantDuration, cfg.Payment.Timeout),
		Hub:      hub,
	})

	return s.Run(ctx, shutdownTimeout)
}

func initStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		log.Info("using in-memory storage")
		return &stores{
			challenges: challenge.NewMemoryStore(),
			sessions:   session.NewMemoryStore(),
			keys:       publickey.NewMemoryRepo(),
			messages:   message.NewMemoryRepo(),
			blobs:      blob.NewMemoryStore(),
		}, nil
	}

	mongoClient, err := initMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	db := mongoClient.Database(cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rs := redisSvc.NewRedis(rdb)
	if err := rs.Ping(ctx); err != nil {
		rs.Close()
		mongoClient.Disconnect(context.Background())
		return nil, err
	}

	messages := message.NewMongoRepo(db)
	if err := messages.EnsureIndexes(ctx); err != nil {
		log.Warn("ensure message indexes failed", zap.Error(err))
	}

	log.Info("using persistent storage",
		zap.String("mongo", cfg.Mongo.URI),
		zap.String("redis", cfg.Redis.Addr))
	return &stores{
		challenges: challenge.NewRedisStore(rs, cfg.Auth.ChallengeTTL),
		sessions:   session.NewRedisStore(rs),
		keys:       publickey.NewMongoRepo(db),
		messages:   messages,
		blobs:      blob.NewRedisStore(rs),
		closers: []func(context.Context) error{
			mongoClient.Disconnect,
			func(context.Context) error { return rs.Close() },
		},
	}, nil
}

func initValidator(ctx context.Context, cfg config.Payment, st *stores) (payment.Validator, error) {
	router := &payment.Router{TrustClientProof: cfg.TrustClientProof}

	switch {
	case cfg.RPCURL != "":
		chain, client, err := payment.DialChainValidator(ctx, cfg.RPCURL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func(context.Context) error {
			client.Close()
			return nil
		})
		router.Receipts = chain
	case cfg.TrustClientProof:
		log.Warn("no rpc_url configured, tx hashes are only format checked")
		router.Receipts = payment.FormatValidator{}
	}

	if cfg.Custodial.APIKey != "" {
		custodial, err := payment.NewCustodialValidator(cfg.Custodial)
		if err != nil {
			return nil, err
		}
		router.Custodial = custodial
	}
	return router, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (s *stores) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, c := range s.closers {
		if err := c(ctx); err != nil {
			log.Error("close storage failed", zap.Error(err))
		}
	}
}
