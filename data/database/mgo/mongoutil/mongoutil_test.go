package mongoutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"DMChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestValidateAndSetDefaults(t *testing.T) {
	c := &Config{Address: []string{"h1:27017", "h2:27017"}, Database: "chat", Username: "u", Password: "p"}
	if err := c.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	want := "mongodb://u:p@h1:27017,h2:27017/chat?authSource=chat&maxPoolSize=100"
	if c.Uri != want {
		t.Errorf("Uri = %q, want %q", c.Uri, want)
	}
	if c.MaxRetry != defaultMaxRetry || c.ConnectTimeout != defaultConnectTimeout {
		t.Errorf("defaults = %d %v", c.MaxRetry, c.ConnectTimeout)
	}
}

func TestBuildURIEscapesCredentials(t *testing.T) {
	c := &Config{Address: []string{"db:27017"}, Database: "chat", Username: "u", Password: "p@ss/word", AuthSource: "admin", MaxPoolSize: 5}
	if err := c.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	want := "mongodb://u:p%40ss%2Fword@db:27017/chat?authSource=admin&maxPoolSize=5"
	if c.Uri != want {
		t.Errorf("Uri = %q, want %q", c.Uri, want)
	}
}

func TestIndex(t *testing.T) {
	m := Index(true, "username", "discriminator")
	keys, ok := m.Keys.(bson.D)
	if !ok || len(keys) != 2 || keys[0].Key != "username" || keys[1].Key != "discriminator" {
		t.Fatalf("keys = %#v", m.Keys)
	}
	if m.Options == nil || m.Options.Unique == nil || !*m.Options.Unique {
		t.Error("unique option missing")
	}
	if Index(false, "a").Options != nil {
		t.Error("non-unique index carries options")
	}
}

func TestValidateRejects(t *testing.T) {
	if err := (&Config{Database: "x"}).ValidateAndSetDefaults(); err == nil {
		t.Error("missing uri and address must fail")
	}
	if err := (&Config{Uri: "mongodb://h"}).ValidateAndSetDefaults(); err == nil {
		t.Error("missing database must fail")
	}
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	if shouldRetry(ctx, mongo.CommandError{Code: 18}) {
		t.Error("auth failure must not be retried")
	}
	if !shouldRetry(ctx, errors.New("dial tcp: refused")) {
		t.Error("network error should be retried")
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if shouldRetry(cctx, errors.New("x")) {
		t.Error("cancelled context must stop retries")
	}
}

func TestCodeErrorOf(t *testing.T) {
	ce, ok := CodeErrorOf(fmt.Errorf("find: %w", mongo.ErrNoDocuments))
	if !ok || ce.Code != errs.RecordNotFoundError {
		t.Errorf("no documents -> %+v %v", ce, ok)
	}
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	ce, ok = CodeErrorOf(dup)
	if !ok || ce.Code != errs.RecordExistError {
		t.Errorf("duplicate key -> %+v %v", ce, ok)
	}
	if _, ok := CodeErrorOf(errors.New("boom")); ok {
		t.Error("unrelated errors must not be translated")
	}
}
