package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
)

func TestRedisStore_Load_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")

	mock.ExpectGet("test:example.com").SetVal(`{"abc": {"en": "Hello", "hi": "नमस्ते"}}`)

	doc, err := s.Load(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc["abc"]["hi"] != "नमस्ते" {
		t.Errorf("unexpected document: %v", doc)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Load_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")

	mock.ExpectGet("test:example.com").RedisNil()

	doc, err := s.Load(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("missing key should not be an error, got %v", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Errorf("missing key should load empty, got %v", doc)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Load_Corrupt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")

	mock.ExpectGet("test:example.com").SetVal("garbage")

	doc, err := s.Load(context.Background(), "example.com")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load error = %v, want ErrCorrupt", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Errorf("corrupt document should load empty, got %v", doc)
	}
}

func TestRedisStore_Load_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")

	mock.ExpectGet("test:example.com").SetErr(errors.New("connection refused"))

	doc, err := s.Load(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected read error")
	}
	if doc == nil {
		t.Error("read error should still return an empty cache")
	}
}

func TestRedisStore_Save(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")
	doc := SiteCache{"abc": Entry{"en": "Hello"}}

	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	mock.ExpectSet("test:a_b", string(data), 0).SetVal("OK")

	if err := s.Save(context.Background(), "a/b", doc); err != nil {
		t.Errorf("Save failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Save_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")

	data, _ := Encode(SiteCache{})
	mock.ExpectSet("test:example.com", string(data), 0).SetErr(errors.New("READONLY"))

	if err := s.Save(context.Background(), "example.com", SiteCache{}); err == nil {
		t.Error("expected save error")
	}
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "")

	mock.ExpectGet("sitetrans:site:example.com").RedisNil()

	if _, err := s.Load(context.Background(), "example.com"); err != nil {
		t.Errorf("Load failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRedisStore_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	s := NewRedisStoreFromClient(db, "test:")

	mock.ExpectPing().SetVal("PONG")

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
