// Package folio выдает человекочитаемые коды отслеживания заявок
// в формате {Prefix}-{YYYYMM}-{sequence}. Счетчик сбрасывается каждый месяц,
// атомарность инкремента обеспечивает Sequencer (мьютекс, Redis INCR или строка в Postgres).
package folio

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const DefaultPrefix = "GAD"

var folioPattern = regexp.MustCompile(`^[A-Z0-9]+-\d{6}-\d{4,}$`)

// Sequencer атомарно выдает следующий номер внутри месячной корзины.
type Sequencer interface {
	Next(ctx context.Context, bucket string) (int64, error)
}

type Issuer struct {
	prefix string
	loc    *time.Location
	seq    Sequencer
}

// NewIssuer создает эмитент. Корзина месяца считается в часовом поясе офиса.
func NewIssuer(prefix string, loc *time.Location, seq Sequencer) *Issuer {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Issuer{prefix: prefix, loc: loc, seq: seq}
}

// Issue выдает новый фолио для момента подачи at.
func (i *Issuer) Issue(ctx context.Context, at time.Time) (string, error) {
	bucket := Bucket(at, i.loc)
	n, err := i.seq.Next(ctx, bucket)
	if err != nil {
		return "", fmt.Errorf("folio: allocate sequence for %s: %w", bucket, err)
	}
	return Compose(i.prefix, bucket, n), nil
}

// Bucket — ключ месячной корзины "YYYYMM".
func Bucket(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return at.In(loc).Format("200601")
}

func Compose(prefix, bucket string, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, bucket, n)
}

// Valid — быстрая проверка формата до похода в хранилище.
func Valid(folio string) bool {
	return folioPattern.MatchString(folio)
}
