package mongoutil

import (
	"context"
	"time"

	"DMChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config is the connection setting for the chat database. Uri wins over
// Address; explicit credentials override the ones in Uri.
type Config struct {
	Uri         string
	Address     []string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
	// ConnectTimeout bounds each attempt (connect + ping).
	ConnectTimeout time.Duration
}

func (c *Config) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.Uri).
		SetMaxPoolSize(uint64(c.MaxPoolSize)).
		SetServerSelectionTimeout(c.ConnectTimeout).
		SetAppName("DMChat")
	if c.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   c.Username,
			Password:   c.Password,
			AuthSource: c.authSource(),
		})
	}
	return opts
}

// Client owns one driver client bound to the configured database.
type Client struct {
	cli *mongo.Client
	db  *mongo.Database
}

func (c *Client) GetDB() *mongo.Database { return c.db }

func (c *Client) Disconnect(ctx context.Context) error {
	return c.cli.Disconnect(ctx)
}

// NewMongoDB validates cfg and connects, backing off between attempts until
// MaxRetry is spent, the error is final, or ctx ends.
func NewMongoDB(ctx context.Context, cfg *Config) (*Client, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	opts := cfg.clientOptions()

	var (
		cli   *mongo.Client
		err   error
		delay = 250 * time.Millisecond
	)
	for attempt := 1; ; attempt++ {
		cli, err = connectOnce(ctx, opts, cfg.ConnectTimeout)
		if err == nil || attempt >= cfg.MaxRetry || !shouldRetry(ctx, err) {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(delay):
			delay *= 2
			continue
		}
		break
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "failed to connect to MongoDB", "database", cfg.Database)
	}
	return &Client{cli: cli, db: cli.Database(cfg.Database)}, nil
}

func connectOnce(ctx context.Context, opts *options.ClientOptions, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// Index builds an ascending index over keys.
func Index(unique bool, keys ...string) mongo.IndexModel {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: 1})
	}
	m := mongo.IndexModel{Keys: d}
	if unique {
		m.Options = options.Index().SetUnique(true)
	}
	return m
}

// EnsureIndexes creates models on coll; existing identical indexes are a no-op.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, models ...mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return errs.WrapMsg(err, "create indexes", "collection", coll.Name())
}
