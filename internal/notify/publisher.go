// Package notify транслирует смену статуса заявки во внешний мир (Redis Pub/Sub).
// Подписчики (рассылка e-mail/SMS гражданам) живут за пределами ядра.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/gad-tramites/internal/domain"
	"github.com/xela07ax/gad-tramites/internal/infra"
)

// StatusSignal — полезная нагрузка сообщения в канале gad:tramites:status.
type StatusSignal struct {
	InstanceID string       `json:"instance_id"`
	Folio      string       `json:"folio,omitempty"`
	State      domain.State `json:"state"`
	Email      string       `json:"email,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	ChangedAt  time.Time    `json:"changed_at"`
}

func NewStatusSignal(inst *domain.ProcedureInstance) StatusSignal {
	return StatusSignal{
		InstanceID: inst.ID,
		Folio:      inst.FolioValue(),
		State:      inst.State,
		Email:      inst.Citizen.Email,
		Phone:      inst.Citizen.Phone,
		ChangedAt:  inst.UpdatedAt,
	}
}

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: infra.RedisChanStatus}
}

// StatusChanged публикует сигнал. Ошибка доставки не откатывает переход, вызывающий её только логирует.
func (p *RedisPublisher) StatusChanged(ctx context.Context, inst *domain.ProcedureInstance) error {
	payload, err := json.Marshal(NewStatusSignal(inst))
	if err != nil {
		return fmt.Errorf("notify: marshal signal: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", p.channel, err)
	}
	return nil
}
