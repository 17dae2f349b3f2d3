package sim

// Состояния одного прогона реплея
const (
	ReplayIdle      = "IDLE"      // движок создан, данные не поданы
	ReplayReplaying = "REPLAYING" // идёт проигрывание пар снимков
	ReplayFinished  = "FINISHED"  // все пары израсходованы, итоги доступны
)

// ValidTransitions определяет допустимые переходы между состояниями.
// Прогон одноразовый: из FINISHED выхода нет, для нового прогона
// создаётся новый движок.
var ValidTransitions = map[string][]string{
	ReplayIdle:      {ReplayReplaying},
	ReplayReplaying: {ReplayFinished},
	ReplayFinished:  {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для логов и API
func StateInfo(s string) string {
	switch s {
	case ReplayIdle:
		return "Прогон создан, ожидание исторических данных"
	case ReplayReplaying:
		return "Идёт проигрывание исторических снимков"
	case ReplayFinished:
		return "Прогон завершён, итоги доступны"
	default:
		return "Неизвестное состояние"
	}
}

// IsFinished возвращает true если прогон завершён
func IsFinished(s string) bool {
	return s == ReplayFinished
}
