// Package search maintains a full-text index of room messages and serves the
// >search command. Indexing is best-effort: a failed add is logged by the
// caller and never blocks message delivery.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"chatsapp/domain"
)

// Hit is one search result, already scoped to the queried room.
type Hit struct {
	Author  string
	Content string
	At      time.Time
}

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Add indexes one message. The message UUID is the document identity, so
// re-adding the same message is an idempotent update.
func (i *Index) Add(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("room", msg.Room)).
		AddField(bluge.NewKeywordField("author", msg.Sender).StoreValue()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("at", msg.At.Format(time.RFC3339Nano)).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a room-scoped match query over message contents.
func (i *Index) Search(ctx context.Context, room, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Error("Closing index reader failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(room).SetField("room")).
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "author":
				hit.Author = string(value)
			case "content":
				hit.Content = string(value)
			case "at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
