package session

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "mm:"
	revokedTokens  = "mm:revoked-tokens"
	maxTxnAttempts = 5
)

// Redis implements Store on a shared redis. Critical sections are
// WATCH/MULTI optimistic sequences: every mutation of a game's matchmaking
// state bumps that game's version key inside the MULTI, so two concurrent
// updates on the same game cannot both commit. The acting users' session
// keys are watched directly.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func verKey(gameID int) string { return keyPrefix + "ver:" + strconv.Itoa(gameID) }

// redisGetter is the slice of the client both *redis.Client and *redis.Tx
// provide for transactional reads
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisBacking struct {
	ctx context.Context
	cmd redisGetter
}

// get retries a transient failure once at the storage boundary, same as
// the identity store
func (b *redisBacking) get(key string) ([]byte, bool, error) {
	data, err := b.cmd.Get(b.ctx, keyPrefix+key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("[SESSION] transient error reading %s, retrying once: %v", key, err)
		data, err = b.cmd.Get(b.ctx, keyPrefix+key).Bytes()
	}
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) Update(ctx context.Context, scope Scope, fn func(*Txn) error) error {
	watched := []string{verKey(scope.GameID)}
	for _, userID := range scope.UserIDs {
		watched = append(watched, keyPrefix+sessionKey(userID))
	}

	transientRetried := false
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		var fnErr error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			txn := newTxn(&redisBacking{ctx: ctx, cmd: tx})
			fnErr = fn(txn)
			// A backing failure can masquerade as a domain miss, so it
			// takes precedence over whatever fn concluded
			if err := txn.Err(); err != nil {
				fnErr = nil
				return err
			}
			if fnErr != nil {
				return fnErr
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, p := range txn.writes() {
					if p.present {
						pipe.Set(ctx, keyPrefix+key, p.data, 0)
					} else {
						pipe.Del(ctx, keyPrefix+key)
					}
				}
				pipe.Incr(ctx, verKey(scope.GameID))
				return nil
			})
			return err
		}, watched...)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			log.Printf("[SESSION] optimistic conflict on game %d (attempt %d)", scope.GameID, attempt+1)
			continue
		case fnErr != nil:
			// Domain error from the critical section, not a backend failure
			return err
		case !transientRetried:
			transientRetried = true
			log.Printf("[SESSION] transient error committing game %d, retrying once: %v", scope.GameID, err)
			continue
		default:
			return err
		}
	}
	return ErrConflict
}

func (r *Redis) View(ctx context.Context, fn func(*Txn) error) error {
	txn := newTxn(&redisBacking{ctx: ctx, cmd: r.client})
	if err := fn(txn); err != nil {
		if terr := txn.Err(); terr != nil {
			return terr
		}
		return err
	}
	return txn.Err()
}

func (r *Redis) RevokeToken(ctx context.Context, tokenID string, expiry time.Time) error {
	now := time.Now().Unix()

	// Prune expired entries before the write
	entries, err := r.client.HGetAll(ctx, revokedTokens).Result()
	if err != nil {
		return err
	}
	var stale []string
	for id, exp := range entries {
		if unix, err := strconv.ParseInt(exp, 10, 64); err == nil && unix < now {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := r.client.HDel(ctx, revokedTokens, stale...).Err(); err != nil {
			return err
		}
	}

	return r.client.HSet(ctx, revokedTokens, tokenID, strconv.FormatInt(expiry.Unix(), 10)).Err()
}

func (r *Redis) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	exp, err := r.client.HGet(ctx, revokedTokens, tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return false, nil
	}
	return unix >= time.Now().Unix(), nil
}
