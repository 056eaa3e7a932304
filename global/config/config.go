package config

import (
	"context"
	"strconv"
	"sync"

	"DMChat/data/database/mgo/mongoutil"
	"DMChat/global"
	"DMChat/logger"
	mid "DMChat/middleware"
	msgstore "DMChat/module/message/store"
	userstore "DMChat/module/user/store"
	"DMChat/service/kafka"
	"DMChat/service/natsx"
	"DMChat/service/storage"
	redis "DMChat/service/storage/redis"
	ids "DMChat/tools/ids"
	"DMChat/tools/specialerror"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Stores bundles the persistence backends chosen at boot.
type Stores struct {
	Users    userstore.Store
	Messages msgstore.Store

	mgo *mongoutil.Client
}

// Close disconnects the database client, if any.
func (s *Stores) Close(ctx context.Context) error {
	if s.mgo == nil {
		return nil
	}
	return s.mgo.Disconnect(ctx)
}

// Redis 在线状态镜像及其关闭函数
type Redis struct {
	Mirror *storage.PresenceMirror
	close  func() error
}

func (r *Redis) Close() error {
	if r == nil || r.close == nil {
		return nil
	}
	return r.close()
}

// Nats holds the event client and the producer for created messages.
type Nats struct {
	Client   *natsx.NatsxClient
	Producer *natsx.NatsxProducer
}

func (n *Nats) Close() error {
	if n == nil || n.Client == nil {
		return nil
	}
	return n.Client.Close()
}

var errHandlersOnce sync.Once

func ConfigLogger(cfg *global.AppConfig) error {
	return logger.SetLevel(cfg.Log.Level)
}

func ConfigIds(cfg *global.AppConfig) error {
	logger.Infof("配置id生成 node=%d", cfg.NodeID)
	return ids.SetDefault(ids.Options{NodeID: cfg.NodeID})
}

// ConfigErrors registers driver error translators used by the HTTP layer.
func ConfigErrors() {
	errHandlersOnce.Do(func() {
		_ = specialerror.AddErrHandler(mongoutil.CodeErrorOf)
	})
}

// ConfigStores connects MongoDB when a URI is configured, otherwise it falls
// back to in-memory stores.
func ConfigStores(ctx context.Context, cfg *global.AppConfig) (*Stores, error) {
	if cfg.Mongo.URI == "" {
		logger.Warn("mongo uri empty, using in-memory stores")
		return &Stores{Users: userstore.NewMemoryStore(), Messages: msgstore.NewMemoryStore()}, nil
	}

	cli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MaxRetry:    3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	db := cli.GetDB()

	users := userstore.NewMongoStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, errors.Wrap(err, "user indexes")
	}
	messages := msgstore.NewMongoStore(db)
	if err := messages.EnsureIndexes(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, errors.Wrap(err, "message indexes")
	}
	logger.Info("mongo connected", zap.String("database", cfg.Mongo.Database))
	return &Stores{Users: users, Messages: messages, mgo: cli}, nil
}

// ConfigRedis starts the presence mirror. A nil result means Redis is not configured.
func ConfigRedis(ctx context.Context, cfg *global.AppConfig) (*Redis, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	rdb, err := redis.NewClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}

	runCtx, cancel := context.WithCancel(ctx)
	mirror := storage.NewPresenceMirror(rdb, strconv.FormatInt(cfg.NodeID, 10), cfg.Redis.PresenceTTL, 0)
	go mirror.Run(runCtx)

	logger.Info("redis presence mirror started", zap.String("addr", cfg.Redis.Addr))
	return &Redis{
		Mirror: mirror,
		close: func() error {
			cancel()
			<-mirror.Done()
			return rdb.Close()
		},
	}, nil
}

// ConfigNats connects the event publisher. A nil result means NATS is not configured.
func ConfigNats(cfg *global.AppConfig) (*Nats, error) {
	if len(cfg.Nats.Servers) == 0 {
		return nil, nil
	}
	cli, err := natsx.NewNatsxClient(natsx.NatsxConfig{
		Servers: cfg.Nats.Servers,
		Name:    cfg.Nats.Name,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	logger.Info("nats connected", zap.Strings("servers", cfg.Nats.Servers), zap.String("subject", cfg.Nats.Subject))
	return &Nats{Client: cli, Producer: natsx.NewNatsxProducer(cli, cfg.Nats.Subject)}, nil
}

// ConfigKafka builds the optional Kafka event sink. A nil result means no brokers are configured.
func ConfigKafka(cfg *global.AppConfig) (*kafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	p, err := kafka.NewProducer(kafka.Config{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		ClientID:    cfg.Nats.Name,
		Compression: cfg.Kafka.Compression,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return p, nil
}

// ConfigMiddleware builds the global chain applied to every route.
func ConfigMiddleware(cfg *global.AppConfig) *mid.MiddlewareManager {
	return mid.NewManager(
		mid.Recovery(),
		mid.AccessLog(),
		mid.CORS(cfg.Server.CORSOrigins),
		mid.BodyLimit(cfg.Server.BodyLimit),
	)
}
