package models

import "time"

// 设备状态
// 设备上报 status 消息时状态为透传字符串，不限于这两个值
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Device 设备记录
// device_id 为设备上报时使用的稳定标识，全表唯一
type Device struct {
	ID        int64      `json:"id"`
	DeviceID  string     `json:"device_id"`
	Name      string     `json:"name"`
	Type      *string    `json:"type"`
	Location  *string    `json:"location"`
	Status    string     `json:"status"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
}
