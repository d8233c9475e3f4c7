package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"stayride/internal/app/commands"
	"stayride/internal/domain/shared/rules"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string    `json:"key"`
	Command    string    `json:"command"`
	Payload    []byte    `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	ErrKeyReused        = errors.New("middleware: idempotency key reused for another command")
)

// Idempotency replays the stored outcome of a command already seen under the
// same key. Only rule violations are stored as failures; infrastructure errors
// leave no record so the client can retry.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			if key == "" {
				return nextFn(ctx, cmd)
			}
			scoped := cmd.Key() + ":" + key
			rec, found, err := store.Get(ctx, scoped)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(rec, idCmd, codec)
			}
			result, err := nextFn(ctx, cmd)
			record := IdempotencyRecord{
				Key:        scoped,
				Command:    cmd.Key(),
				OccurredAt: time.Now().UTC(),
			}
			if err != nil {
				kind, isRule := rules.KindOf(err)
				if !isRule {
					return nil, err
				}
				var v *rules.Violation
				errors.As(err, &v)
				record.Kind = string(kind)
				record.Error = v.Detail
				if saveErr := store.Save(ctx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				return nil, saveErr
			}
			return result, nil
		})
	}
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, ErrKeyReused
	}
	if rec.Kind != "" {
		return nil, rules.New(rules.Kind(rec.Kind), rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return proto, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return normalizePrototype(proto), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
