package relay

// typingSets — conversationID -> множество печатающих пользователей.
// Набор создаётся лениво на первом start и удаляется, как только пустеет:
// висящих пустых множеств не бывает. Таймаута нет — переходы только по
// явным start/stop и по cleanup-хукам (join, leave, send, disconnect).
type typingSets struct {
	byConversation map[string]map[string]struct{}
}

func newTypingSets() *typingSets {
	return &typingSets{byConversation: make(map[string]map[string]struct{})}
}

// start добавляет пользователя; повторный start — no-op по состоянию.
// Возвращает true, если пользователь добавлен впервые.
func (t *typingSets) start(conversationID, userID string) bool {
	set, ok := t.byConversation[conversationID]
	if !ok {
		set = make(map[string]struct{})
		t.byConversation[conversationID] = set
	}
	if _, exists := set[userID]; exists {
		return false
	}
	set[userID] = struct{}{}
	return true
}

// stop убирает пользователя, если он был в наборе. true — удаление
// действительно произошло.
func (t *typingSets) stop(conversationID, userID string) bool {
	set, ok := t.byConversation[conversationID]
	if !ok {
		return false
	}
	if _, exists := set[userID]; !exists {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.byConversation, conversationID)
	}
	return true
}

// sweep убирает пользователя из всех наборов; возвращает беседы, где
// удаление было действительным. Вызывается при disconnect.
func (t *typingSets) sweep(userID string) []string {
	var affected []string
	for conversationID, set := range t.byConversation {
		if _, exists := set[userID]; !exists {
			continue
		}
		delete(set, userID)
		if len(set) == 0 {
			delete(t.byConversation, conversationID)
		}
		affected = append(affected, conversationID)
	}
	return affected
}

func (t *typingSets) isTyping(conversationID, userID string) bool {
	_, ok := t.byConversation[conversationID][userID]
	return ok
}

func (t *typingSets) size(conversationID string) int {
	return len(t.byConversation[conversationID])
}
