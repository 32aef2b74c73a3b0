package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "gad"
)

// Ключи счетчиков
const (
	RedisKeyFolioSeq = RedisNamespace + ":folio:seq:" // + YYYYMM
)

// Каналы Pub/Sub (события)
const (
	// RedisChanStatus — смена статуса заявки (для рассылки уведомлений гражданам).
	RedisChanStatus = RedisNamespace + ":tramites:status"
)

// FolioSequenceKey Генератор ключа месячного счетчика фолио
func FolioSequenceKey(bucket string) string {
	return RedisKeyFolioSeq + bucket
}
