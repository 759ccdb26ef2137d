package telemetry

import "context"

// Source описывает источник кадров телеметрии (HTTP приёмник, websocket клиент).
type Source interface {
	// Start запускает источник в отдельной горутине и немедленно возвращается.
	// Должен реагировать на отмену контекста и завершать работу.
	Start(ctx context.Context) error

	// Stop инициирует graceful shutdown с использованием контекста.
	Stop(ctx context.Context) error

	// Addr возвращает адрес, на котором слушает или к которому подключается источник.
	Addr() string
}
