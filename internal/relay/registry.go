package relay

import (
	"sort"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// registry — чистая структура данных userID -> актуальное соединение.
// Никаких рассылок: это забота Core.
type registry struct {
	online map[string]domain.PresenceEntry
}

func newRegistry() *registry {
	return &registry{online: make(map[string]domain.PresenceEntry)}
}

// register — идемпотентный upsert; более позднее соединение того же
// пользователя перезаписывает запись (last writer wins), старое при этом
// принудительно не закрывается.
func (r *registry) register(userID, connID, displayName string, now time.Time) {
	r.online[userID] = domain.PresenceEntry{
		ConnID:      connID,
		DisplayName: displayName,
		LastSeen:    now,
	}
}

// unregister удаляет запись только если она всё ещё указывает на connID.
// Guard против гонки «устаревший disconnect против свежего reconnect»:
// если запись уже перезаписана новым соединением, ничего не делаем.
func (r *registry) unregister(userID, connID string) bool {
	e, ok := r.online[userID]
	if !ok || e.ConnID != connID {
		return false
	}
	delete(r.online, userID)
	return true
}

func (r *registry) get(userID string) (domain.PresenceEntry, bool) {
	e, ok := r.online[userID]
	return e, ok
}

func (r *registry) listOnlineUserIDs() []string {
	ids := make([]string, 0, len(r.online))
	for id := range r.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *registry) size() int { return len(r.online) }
