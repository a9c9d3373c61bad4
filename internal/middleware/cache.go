package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/config"
)

// SeatMapCache caches successful GET responses of the seat-map routes in
// Redis.  Keys are namespaced by the ":id" route param so every ledger
// mutation can drop all views of one event; routes without an event id
// (event list, dashboard) share a global namespace that is dropped on every
// invalidation.  A nil client disables the cache.
type SeatMapCache struct {
	cfg    config.CacheConfig
	rdb    *redis.Client
	logger *logrus.Logger
}

func NewSeatMapCache(cfg config.CacheConfig, rdb *redis.Client, logger *logrus.Logger) *SeatMapCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &SeatMapCache{cfg: cfg, rdb: rdb, logger: logger}
}

func (s *SeatMapCache) enabled() bool { return s != nil && s.cfg.Enabled && s.rdb != nil }

// captureWriter copies the response body, up to limit bytes, while
// forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
		cw.buf.Write(b)
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

func (s *SeatMapCache) namespace(eventID string) string {
	if eventID == "" {
		return s.cfg.Prefix + ":global"
	}
	return s.cfg.Prefix + ":event:" + eventID
}

func (s *SeatMapCache) keyFor(c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + c.Path() + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", s.namespace(c.Param("id")), sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// Middleware serves cached responses and stores fresh 200s.
func (s *SeatMapCache) Middleware() echo.MiddlewareFunc {
	if !s.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(s.cfg.MaxBodyBytes)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := s.keyFor(c)

			if bs, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := s.rdb.Set(context.WithoutCancel(ctx), key, payload, s.cfg.TTL).Err(); err != nil {
				s.logger.WithError(err).Debug("seat map cache: store failed")
			}
			return nil
		}
	}
}

// Invalidate drops every cached view of eventID plus the global views.
func (s *SeatMapCache) Invalidate(ctx context.Context, eventID string) {
	if !s.enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, ns := range []string{s.namespace(eventID), s.namespace("")} {
		iter := s.rdb.Scan(ctx, 0, ns+":*", 200).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.logger.WithError(err).WithField("namespace", ns).Warn("seat map cache: scan failed")
			continue
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
			s.logger.WithError(err).WithField("namespace", ns).Warn("seat map cache: delete failed")
		}
	}
}
