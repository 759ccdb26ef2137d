package race

// RaceSubject - субъект для событий уровня гонки (ключ только по типу события).
const RaceSubject = -1

type ledgerKey struct {
	subject int
	kind    Kind
}

// Ledger хранит для пары (субъект, тип события) номер круга, на котором событие уже было
// отправлено. Записи живут всю сессию. Не потокобезопасен: изменяется только фазой детекции.
type Ledger struct {
	last map[ledgerKey]int
}

func NewLedger() *Ledger {
	return &Ledger{last: make(map[ledgerKey]int)}
}

// Allow возвращает true и запоминает lap, если записи нет или сохранённый круг строго меньше lap.
func (l *Ledger) Allow(subject int, kind Kind, lap int) bool {
	k := ledgerKey{subject: subject, kind: kind}
	if prev, ok := l.last[k]; ok && prev >= lap {
		return false
	}
	l.last[k] = lap
	return true
}

// Last возвращает круг последней отправки события.
func (l *Ledger) Last(subject int, kind Kind) (int, bool) {
	lap, ok := l.last[ledgerKey{subject: subject, kind: kind}]
	return lap, ok
}

func (l *Ledger) Len() int { return len(l.last) }
