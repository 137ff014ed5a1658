package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"

	"github.com/vsharee/vsharee/internal/domain"
)

// Redis key layout:
//
//	group:{id}          hash  name, idle
//	group:{id}:members  hash  {userID} -> role
//	group:{id}:messages list  json ChatMessage, newest last
//	user:{id}           hash  name
type RedisStore struct {
	client     *redis.Client
	historyCap int64
}

func NewRedisStore(client *redis.Client, historyCap int64) *RedisStore {
	return &RedisStore{client: client, historyCap: historyCap}
}

// NewRedisClient connects and pings with constant backoff so a slow redis
// at boot does not kill the process.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}
	strategy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 5),
		ctx,
	)
	if err := backoff.Retry(ping, strategy); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func groupKey(gid domain.GroupID) string    { return fmt.Sprintf("group:%s", gid) }
func membersKey(gid domain.GroupID) string  { return fmt.Sprintf("group:%s:members", gid) }
func messagesKey(gid domain.GroupID) string { return fmt.Sprintf("group:%s:messages", gid) }
func userKey(uid domain.UserID) string      { return fmt.Sprintf("user:%s", uid) }

func (s *RedisStore) Group(ctx context.Context, gid domain.GroupID) (*domain.Group, error) {
	fields, err := s.client.HGetAll(ctx, groupKey(gid)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", groupKey(gid), err)
	}
	if len(fields) == 0 {
		return nil, ErrGroupNotFound
	}
	idle, _ := strconv.ParseBool(fields["idle"])
	return &domain.Group{ID: gid, Name: fields["name"], Idle: idle}, nil
}

func (s *RedisStore) Role(ctx context.Context, gid domain.GroupID, uid domain.UserID) (domain.Role, error) {
	exists, err := s.client.Exists(ctx, groupKey(gid)).Result()
	if err != nil {
		return "", fmt.Errorf("exists %s: %w", groupKey(gid), err)
	}
	if exists == 0 {
		return "", ErrGroupNotFound
	}
	raw, err := s.client.HGet(ctx, membersKey(gid), string(uid)).Result()
	if err == redis.Nil {
		return "", ErrNotAMember
	}
	if err != nil {
		return "", fmt.Errorf("hget %s: %w", membersKey(gid), err)
	}
	role := domain.Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("corrupt role %q for user %s in group %s", raw, uid, gid)
	}
	return role, nil
}

func (s *RedisStore) SetIdle(ctx context.Context, gid domain.GroupID, idle bool) error {
	if err := s.client.HSet(ctx, groupKey(gid), "idle", strconv.FormatBool(idle)).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", groupKey(gid), err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	key := messagesKey(msg.GroupID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.historyCap > 0 {
		pipe.LTrim(ctx, key, -s.historyCap, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) User(ctx context.Context, uid domain.UserID) (*domain.User, error) {
	name, err := s.client.HGet(ctx, userKey(uid), "name").Result()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hget %s: %w", userKey(uid), err)
	}
	user, err := domain.NewUser(uid, name)
	if err != nil {
		return nil, fmt.Errorf("corrupt user record %s: %w", uid, err)
	}
	return user, nil
}
