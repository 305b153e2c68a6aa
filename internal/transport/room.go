// Package transport carries control messages and screen audio between the
// browser gateway and the copilot worker over Redis. Each room has two
// pub/sub topics and one audio stream.
package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/screencopilot/internal/protocol"
	"github.com/yoockh/screencopilot/internal/utils"
)

const (
	audioGroup     = "copilot-worker"
	audioMaxLen    = 2000
	audioReadBlock = 5 * time.Second

	fieldSource = "source"
	fieldName   = "name"
	fieldPCM    = "pcm"
	fieldEOF    = "eof"
)

func ToWorkerTopic(room string) string { return "room:" + room + ":to_worker" }
func ToClientTopic(room string) string { return "room:" + room + ":to_client" }
func AudioStream(room string) string   { return "room:" + room + ":audio" }

// AudioFrame is one chunk of PCM16LE mono audio. Source is the track kind
// (screen_share_audio, microphone) and Name the publisher's track label.
type AudioFrame struct {
	Source string
	Name   string
	PCM    []byte
}

type RedisRoom struct {
	rdb  *redis.Client
	name string
}

func NewRedisRoom(rdb *redis.Client, name string) *RedisRoom {
	return &RedisRoom{rdb: rdb, name: name}
}

func (r *RedisRoom) Name() string { return r.name }

// Send publishes one outbound message to every client in the room.
func (r *RedisRoom) Send(ctx context.Context, msg protocol.Outbound) error {
	const op = "RedisRoom.Send"

	b, err := protocol.Encode(msg)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "encode failed", err)
	}
	if err := r.rdb.Publish(ctx, ToClientTopic(r.name), b).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "publish failed", err)
	}
	return nil
}

// PublishToWorker forwards a raw client control payload.
func (r *RedisRoom) PublishToWorker(ctx context.Context, payload []byte) error {
	if err := r.rdb.Publish(ctx, ToWorkerTopic(r.name), payload).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, "RedisRoom.PublishToWorker", "publish failed", err)
	}
	return nil
}

// ClientMessages streams the room's outbound payloads to a client bridge.
// The channel closes when ctx is done or the subscription drops.
func (r *RedisRoom) ClientMessages(ctx context.Context) (<-chan []byte, error) {
	sub := r.rdb.Subscribe(ctx, ToClientTopic(r.name))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, utils.E(utils.CodeUnavailable, "RedisRoom.ClientMessages", "subscribe failed", err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Listen delivers inbound control payloads to fn until ctx is done or the
// subscription fails. fn runs on the listener goroutine.
func (r *RedisRoom) Listen(ctx context.Context, fn func(payload []byte)) error {
	sub := r.rdb.Subscribe(ctx, ToWorkerTopic(r.name))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return utils.E(utils.CodeUnavailable, "RedisRoom.Listen", "subscribe failed", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			fn([]byte(m.Payload))
		}
	}
}

// AppendAudio queues a PCM chunk on the room's audio stream.
func (r *RedisRoom) AppendAudio(ctx context.Context, source, name string, pcm []byte) error {
	return r.xadd(ctx, map[string]any{fieldSource: source, fieldName: name, fieldPCM: pcm})
}

// EndAudio marks the end of one track. Readers see io.EOF together with the
// track's source and name; other tracks on the stream keep flowing.
func (r *RedisRoom) EndAudio(ctx context.Context, source, name string) error {
	return r.xadd(ctx, map[string]any{fieldSource: source, fieldName: name, fieldEOF: "1"})
}

func (r *RedisRoom) xadd(ctx context.Context, values map[string]any) error {
	err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: AudioStream(r.name),
		MaxLen: audioMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return utils.E(utils.CodeUnavailable, "RedisRoom.AppendAudio", "enqueue audio failed", err)
	}
	return nil
}

// AudioReader consumes the room's audio stream as one member of the worker
// consumer group.
type AudioReader struct {
	rdb      *redis.Client
	stream   string
	consumer string
	pending  []redis.XMessage
}

func (r *RedisRoom) AudioReader(ctx context.Context, consumer string) (*AudioReader, error) {
	stream := AudioStream(r.name)
	err := r.rdb.XGroupCreateMkStream(ctx, stream, audioGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, utils.E(utils.CodeUnavailable, "RedisRoom.AudioReader", "create group failed", err)
	}
	return &AudioReader{rdb: r.rdb, stream: stream, consumer: consumer}, nil
}

// Next blocks until a frame arrives. It returns io.EOF when the track ended
// and ctx.Err() when ctx is done.
func (a *AudioReader) Next(ctx context.Context) (AudioFrame, error) {
	for len(a.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return AudioFrame{}, err
		}
		res, err := a.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    audioGroup,
			Consumer: a.consumer,
			Streams:  []string{a.stream, ">"},
			Count:    32,
			Block:    audioReadBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return AudioFrame{}, ctx.Err()
			}
			return AudioFrame{}, utils.E(utils.CodeUnavailable, "AudioReader.Next", "read audio failed", err)
		}
		for _, s := range res {
			a.pending = append(a.pending, s.Messages...)
		}
	}

	msg := a.pending[0]
	a.pending = a.pending[1:]
	_ = a.rdb.XAck(ctx, a.stream, audioGroup, msg.ID).Err()

	frame, eof := decodeAudio(msg.Values)
	if eof {
		return frame, io.EOF
	}
	return frame, nil
}

func decodeAudio(values map[string]any) (AudioFrame, bool) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	f := AudioFrame{Source: str(fieldSource), Name: str(fieldName), PCM: []byte(str(fieldPCM))}
	return f, str(fieldEOF) != ""
}
