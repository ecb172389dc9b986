package service

import (
	"github.com/yuqie6/gigledger/internal/eventbus"
)

// Publisher 进度事件的发布端（eventbus.Hub 实现）
type Publisher interface {
	Publish(evt eventbus.Event)
}

// EventProgressionUpdated 每次成功写入进度后发布
const EventProgressionUpdated = "progression.updated"

func publishProgress(pub Publisher, userID, profileID, action string, extra map[string]any) {
	if pub == nil || userID == "" {
		return
	}
	data := map[string]any{
		"user_id":    userID,
		"profile_id": profileID,
		"action":     action,
	}
	for k, v := range extra {
		data[k] = v
	}
	pub.Publish(eventbus.Event{Type: EventProgressionUpdated, UserID: userID, Data: data})
}
