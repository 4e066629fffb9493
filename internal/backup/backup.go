package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
)

// Collection is a collection document store that can be exported and restored
// as raw bytes.
type Collection interface {
	Key() string
	ExportRaw(ctx context.Context) ([]byte, bool, error)
	ImportRaw(ctx context.Context, raw []byte) error
}

// Export reads every collection. Collections whose blob does not exist yet are
// left out.
func Export(ctx context.Context, cols []Collection, now time.Time) (*Archive, error) {
	a := &Archive{CreatedAt: now.UTC(), Documents: []Entry{}}
	for _, c := range cols {
		raw, found, err := c.ExportRaw(ctx)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", c.Key(), err)
		}
		if !found {
			logger.Infof("backup: %s does not exist, skipped", c.Key())
			continue
		}
		a.Documents = append(a.Documents, Entry{Key: c.Key(), Body: raw})
	}
	return a, nil
}

// Restore writes each archived document back to the collection with the same
// key and returns the restored keys. Documents without a matching collection are
// skipped. Restoring stops at the first failure.
func Restore(ctx context.Context, cols []Collection, a *Archive) ([]string, error) {
	byKey := make(map[string]Collection, len(cols))
	for _, c := range cols {
		byKey[c.Key()] = c
	}
	var restored []string
	for _, d := range a.Documents {
		c, ok := byKey[d.Key]
		if !ok {
			logger.Warnf("backup: no collection for %s, skipped", d.Key)
			continue
		}
		if err := c.ImportRaw(ctx, d.Body); err != nil {
			return restored, fmt.Errorf("restore %s: %w", d.Key, err)
		}
		restored = append(restored, d.Key)
	}
	return restored, nil
}
