package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"arbsim/internal/models"
	"arbsim/internal/optimizer"
	"arbsim/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON буферов убирает аллокации на каждый Broadcast:
// во время перебора события прогресса идут сотнями в секунду
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам.
// Обеспечивает real-time трансляцию хода поиска и итогов прогонов
// на frontend без необходимости polling.
//
// Функции:
// - Регистрация новых WebSocket клиентов
// - Отмена регистрации отключенных клиентов
// - Broadcast сообщений всем активным клиентам
// - Маршрутизация сообщений по типам (searchProgress, searchFinished, backtestFinished)
// - Очистка медленных и отключенных соединений
// - Потокобезопасная работа с клиентами (sync.RWMutex)
//
// Hub реализует интерфейс service.ProgressBroadcaster.
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.SearchProgress(kind, event)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Остановка главного цикла
	stop chan struct{}

	// Счётчик сообщений, отброшенных при переполнении канала
	dropped atomic.Int64

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex

	logger *utils.Logger
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		logger:     utils.L().WithComponent("websocket"),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и broadcast.
// Рассылка идёт без удержания Lock: список клиентов копируется
// под коротким RLock, медленные клиенты удаляются после рассылки.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", utils.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", utils.Int("total_clients", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// клиент не успевает вычитывать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn("removed slow clients",
					utils.Int("removed", len(toRemove)),
					utils.Int("total_clients", total),
				)
			}
		}
	}
}

// Stop останавливает главный цикл Hub
func (h *Hub) Stop() {
	close(h.stop)
}

// Broadcast сериализует и отправляет сообщение всем клиентам.
// Не блокируется: при переполненном канале сообщение отбрасывается,
// счётчик потерь растёт.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("marshal broadcast message", utils.Err(err))
		jsonBufferPool.Put(buf)
		return
	}

	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Буфер возвращается в пул, данные копируются
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw отправляет уже сериализованное сообщение
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// ============ service.ProgressBroadcaster ============

// SearchProgress транслирует ход активного поиска параметров
func (h *Hub) SearchProgress(kind string, event optimizer.ProgressEvent) {
	h.Broadcast(NewSearchProgressMessage(kind, event))
}

// SearchFinished транслирует итог завершённого поиска
func (h *Hub) SearchFinished(kind string, rec *models.OptimizationRecord) {
	h.Broadcast(NewSearchFinishedMessage(kind, rec))
}

// BacktestFinished транслирует итог одиночного прогона
func (h *Hub) BacktestFinished(run *models.BacktestRun) {
	h.Broadcast(NewBacktestFinishedMessage(run))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает число сообщений, отброшенных
// из-за переполнения broadcast канала
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
