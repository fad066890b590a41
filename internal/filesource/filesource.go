// Package filesource is the single global worker pool that reads tiles and
// source metadata out of MBTiles archives (§4.4). Every fetch goes through a
// worker so the underlying *sql.DB handles are each touched from one
// goroutine at a time, and concurrent identical fetches collapse into one
// job via singleflight.
package filesource

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/kartoza/tileserve/internal/mbtiles"
	"github.com/kartoza/tileserve/internal/worker"
)

// Response is the result of a fetchTile/fetchSource job. Callers must check
// Error first, then NoContent, then Data (§4.4).
type Response struct {
	Data      []byte
	Error     *ResponseError
	NoContent bool
}

// ResponseError carries a human-readable message, mirroring the reference
// {error: {message}} shape.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string { return e.Message }

// handle is the per-worker resource. It holds no state: each fetch job opens
// the MBTiles archive itself and closes it when done, because
// fetchTile/fetchSource are addressed by an explicit path that can vary
// between calls queued to the same worker.
type handle struct{}

// Source is the global file-source pool described in §4.4 (min 0, max 16).
type Source struct {
	pool  *worker.Pool[handle]
	group singleflight.Group
}

// New creates the file-source pool.
func New(ctx context.Context) (*Source, error) {
	pool, err := worker.NewPool(ctx, 0, 16, func(context.Context) (handle, error) {
		return handle{}, nil
	}, func(handle) {})
	if err != nil {
		return nil, fmt.Errorf("filesource: %w", err)
	}
	return &Source{pool: pool}, nil
}

// Close disposes the underlying pool.
func (s *Source) Close() {
	s.pool.Dispose()
}

// FetchTile acquires a worker and reads one tile from the archive at
// mbtilesPath (§4.4). Concurrent identical (path,z,x,y) fetches are
// collapsed into a single worker job.
func (s *Source) FetchTile(ctx context.Context, mbtilesPath string, z, x, y int) (Response, error) {
	key := fmt.Sprintf("tile:%s:%d:%d:%d", mbtilesPath, z, x, y)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.runJob(ctx, func(handle) (any, error) {
			db, err := mbtiles.Open(mbtilesPath)
			if err != nil {
				return Response{Error: &ResponseError{Message: err.Error()}}, nil
			}
			defer db.Close()

			data, ok, err := db.Tile(z, x, y)
			if err != nil {
				return Response{Error: &ResponseError{Message: err.Error()}}, nil
			}
			if !ok {
				return Response{NoContent: true}, nil
			}
			return Response{Data: data}, nil
		})
	})
	if err != nil {
		return Response{}, err
	}
	return v.(Response), nil
}

// FetchSource acquires a worker and reads TileJSON-shaped metadata from the
// archive at mbtilesPath (§4.4).
func (s *Source) FetchSource(ctx context.Context, mbtilesPath string) (Response, error) {
	key := "source:" + mbtilesPath
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.runJob(ctx, func(handle) (any, error) {
			db, err := mbtiles.Open(mbtilesPath)
			if err != nil {
				return Response{Error: &ResponseError{Message: err.Error()}}, nil
			}
			defer db.Close()

			meta, err := db.Metadata()
			if err != nil {
				return Response{Error: &ResponseError{Message: err.Error()}}, nil
			}

			info, err := os.Stat(mbtilesPath)
			if err != nil {
				return Response{Error: &ResponseError{Message: err.Error()}}, nil
			}

			doc, err := metadataToTileJSON(meta, info.Size())
			if err != nil {
				return Response{Error: &ResponseError{Message: err.Error()}}, nil
			}
			return Response{Data: doc}, nil
		})
	})
	if err != nil {
		return Response{}, err
	}
	return v.(Response), nil
}

func (s *Source) runJob(ctx context.Context, fn worker.Job[handle]) (Response, error) {
	w, err := s.pool.Acquire(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("filesource: acquire worker: %w", err)
	}
	defer s.pool.Release(w)

	v, err := w.Submit(fn).Wait(ctx)
	if err != nil {
		return Response{}, err
	}
	return v.(Response), nil
}
