package model

// LedgerResult результат атомарной операции над счётчиком мест
type LedgerResult int

const (
	LedgerApplied              LedgerResult = iota // изменение применено
	LedgerInsufficientCapacity                     // не хватает мест
	LedgerInstanceNotFound                         // рейс не найден
	LedgerNotBookable                              // рейс закрыт для бронирования
	LedgerOutOfBounds                              // счётчик ушёл бы за 0..max_capacity
)

func (r LedgerResult) String() string {
	switch r {
	case LedgerApplied:
		return "applied"
	case LedgerInsufficientCapacity:
		return "insufficient_capacity"
	case LedgerInstanceNotFound:
		return "instance_not_found"
	case LedgerNotBookable:
		return "not_bookable"
	case LedgerOutOfBounds:
		return "out_of_bounds"
	default:
		return "unknown"
	}
}
