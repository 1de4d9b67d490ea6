package domain

import "fmt"

// StateKind - вид состояния сессии.
type StateKind int

// Состояния сессии.
const (
	LoggedOut StateKind = iota
	Authenticated
	Refreshing
	Invalid
)

func (k StateKind) String() string {
	switch k {
	case LoggedOut:
		return "logged_out"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(k))
	}
}

// SessionState - неизменяемый снимок состояния сессии.
// Снимки сравниваются по идентичности указателя, поэтому изменять их после
// публикации нельзя: каждое изменение создает новый снимок.
type SessionState struct {
	Kind   StateKind
	Tokens TokenPair
	Flight *Flight
}

// LoggedOutState возвращает снимок без сессии.
func LoggedOutState() *SessionState {
	return &SessionState{Kind: LoggedOut}
}

// InvalidState возвращает терминальный снимок без токенов.
func InvalidState() *SessionState {
	return &SessionState{Kind: Invalid}
}

// AuthenticatedState возвращает снимок с действующей парой токенов.
func AuthenticatedState(pair TokenPair) *SessionState {
	return &SessionState{Kind: Authenticated, Tokens: pair}
}

// RefreshingState возвращает снимок с тем же набором токенов и ожидаемым обновлением.
func RefreshingState(pair TokenPair, flight *Flight) *SessionState {
	return &SessionState{Kind: Refreshing, Tokens: pair, Flight: flight}
}

// HasTokens сообщает, что снимок содержит пару токенов.
func (s *SessionState) HasTokens() bool {
	return s.Kind == Authenticated || s.Kind == Refreshing
}
