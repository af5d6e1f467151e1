package workers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/davigonia/mr-learning/internal/providers/stt"
	"github.com/davigonia/mr-learning/internal/services"
	"github.com/davigonia/mr-learning/internal/storage"
)

// TranscribeWorkerPool consumes capture audio off a redis stream, runs speech
// recognition, and publishes transcripts back to the session channel. Clients
// with on-device recognition never touch this path; it exists for platforms
// that can only ship raw audio.
type TranscribeWorkerPool struct {
	Redis      *redis.Client
	Buffers    services.BufferService
	STT        stt.Provider
	NumWorkers int

	// Archive is optional; when set, raw clips are stored for parental
	// review and the object path recorded on the buffer document.
	Archive storage.Uploader

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *TranscribeWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Buffers == nil || p.STT == nil {
		return errors.New("TranscribeWorkerPool missing dependency: Redis/Buffers/STT must be set")
	}
	if p.Stream == "" {
		p.Stream = "capture:audio"
	}
	if p.Group == "" {
		p.Group = "capture-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TranscribeWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

// normalizeLocale maps whatever a client sent into a recognizer locale.
func normalizeLocale(v string) string {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "", "english", "en", "en-us":
		return "en-US"
	case "cantonese", "yue", "zh-hk":
		return "zh-HK"
	default:
		return strings.TrimSpace(v)
	}
}

func (p *TranscribeWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	sessionID := getStr("session_id")
	chunkIndexStr := getStr("chunk_index")
	if sessionID == "" || chunkIndexStr == "" {
		return
	}
	chunkIndex, _ := strconv.ParseInt(chunkIndexStr, 10, 64)

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"session_id":  sessionID,
		"chunk_index": chunkIndex,
	})

	respCh := "session:" + sessionID + ":response"
	statusCh := "session:" + sessionID + ":status"
	locale := normalizeLocale(getStr("language"))

	b64 := getStr("audio_base64")
	if b64 == "" {
		return
	}
	raw := b64
	if i := strings.Index(raw, ","); i >= 0 {
		raw = raw[i+1:] // strip data:...;base64,
	}
	audioBytes, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.WithError(err).Warn("base64 decode failed")
		p.publishStatus(ctx, statusCh, chunkIndex, "failed", "invalid audio_base64")
		return
	}

	_ = p.Buffers.MarkTranscript(ctx, sessionID, chunkIndex, "", 0, "processing")
	p.publishStatus(ctx, statusCh, chunkIndex, "processing", "transcribing")

	text, conf, err := p.STT.Transcribe(ctx, audioBytes, locale)
	if err != nil {
		log.WithError(err).Error("transcription failed")
		_ = p.Buffers.MarkTranscript(ctx, sessionID, chunkIndex, "", 0, "failed")
		p.publishStatus(ctx, statusCh, chunkIndex, "failed", "transcription failed")
		return
	}

	_ = p.Buffers.MarkTranscript(ctx, sessionID, chunkIndex, text, conf, "done")

	payload, _ := json.Marshal(map[string]any{
		"type":        "transcript_result",
		"chunk_index": chunkIndex,
		"text":        text,
		"confidence":  conf,
		"is_final":    true,
	})
	_ = p.Redis.Publish(ctx, respCh, string(payload)).Err()
	p.publishStatus(ctx, statusCh, chunkIndex, "done", "chunk transcribed")

	p.archive(ctx, log, sessionID, chunkIndex, audioBytes)
}

func (p *TranscribeWorkerPool) archive(ctx context.Context, log *logrus.Entry, sessionID string, chunkIndex int64, audio []byte) {
	if p.Archive == nil {
		return
	}
	object := fmt.Sprintf("captures/%s/%d.webm", sessionID, chunkIndex)
	url, err := p.Archive.Upload(ctx, object, "audio/webm", bytes.NewReader(audio))
	if err != nil {
		log.WithError(err).Warn("audio archive failed")
		return
	}
	if err := p.Buffers.MarkArchived(ctx, sessionID, chunkIndex, url); err != nil {
		log.WithError(err).Warn("archive url record failed")
	}
}

func (p *TranscribeWorkerPool) publishStatus(ctx context.Context, channel string, chunkIndex int64, status, message string) {
	payload, _ := json.Marshal(map[string]any{
		"type":        "status",
		"status":      status,
		"message":     message,
		"chunk_index": chunkIndex,
	})
	_ = p.Redis.Publish(ctx, channel, string(payload)).Err()
}
