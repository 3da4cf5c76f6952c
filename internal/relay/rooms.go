package relay

// Имена комнат. Комната уведомлений создаётся при аутентификации,
// комната беседы — по явному запросу клиента.
func userRoom(userID string) string { return "user-" + userID }

func conversationRoom(conversationID string) string { return "conversation-" + conversationID }

// roomIndex хранит членство в обе стороны: roomID -> connIDs и
// connID -> roomIDs. Прямых ссылок между объектами нет — очистка при
// disconnect сводится к удалению по ключу. Пустые комнаты удаляются сразу.
type roomIndex struct {
	byRoom map[string]map[string]struct{}
	byConn map[string]map[string]struct{}
}

func newRoomIndex() *roomIndex {
	return &roomIndex{
		byRoom: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

func (ri *roomIndex) join(connID, roomID string) {
	rs, ok := ri.byRoom[roomID]
	if !ok {
		rs = make(map[string]struct{})
		ri.byRoom[roomID] = rs
	}
	rs[connID] = struct{}{}

	cs, ok := ri.byConn[connID]
	if !ok {
		cs = make(map[string]struct{})
		ri.byConn[connID] = cs
	}
	cs[roomID] = struct{}{}
}

func (ri *roomIndex) leave(connID, roomID string) {
	if rs, ok := ri.byRoom[roomID]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(ri.byRoom, roomID)
		}
	}
	if cs, ok := ri.byConn[connID]; ok {
		delete(cs, roomID)
		if len(cs) == 0 {
			delete(ri.byConn, connID)
		}
	}
}

// dropConn убирает соединение из всех комнат, возвращает список покинутых.
func (ri *roomIndex) dropConn(connID string) []string {
	cs, ok := ri.byConn[connID]
	if !ok {
		return nil
	}
	left := make([]string, 0, len(cs))
	for roomID := range cs {
		left = append(left, roomID)
		if rs, ok := ri.byRoom[roomID]; ok {
			delete(rs, connID)
			if len(rs) == 0 {
				delete(ri.byRoom, roomID)
			}
		}
	}
	delete(ri.byConn, connID)
	return left
}

func (ri *roomIndex) conns(roomID string) map[string]struct{} {
	return ri.byRoom[roomID]
}

func (ri *roomIndex) contains(connID, roomID string) bool {
	_, ok := ri.byConn[connID][roomID]
	return ok
}
