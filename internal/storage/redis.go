package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"wfh/attendance/internal/session"
)

// RedisStore keeps the entries under <prefix>:token and <prefix>:user. Both
// keys are written in one MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "wfh:session"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(entry string) string {
	return fmt.Sprintf("%s:%s", s.prefix, entry)
}

func (s *RedisStore) Load(ctx context.Context) (session.Session, bool, error) {
	values, err := s.client.MGet(ctx, s.key(tokenEntry), s.key(userEntry)).Result()
	if err != nil {
		return session.Session{}, false, err
	}
	token, _ := values[0].(string)
	user, _ := values[1].(string)
	return decodeEntries(token, user)
}

func (s *RedisStore) Save(ctx context.Context, sess session.Session) error {
	token, user, err := encodeEntries(sess)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(tokenEntry), token, 0)
		pipe.Set(ctx, s.key(userEntry), user, 0)
		return nil
	})
	return err
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key(tokenEntry), s.key(userEntry)).Err()
}
