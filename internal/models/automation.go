package models

import "time"

// 自动化规则比较条件
const (
	ConditionGreater = "greater"
	ConditionLess    = "less"
	ConditionEqual   = "equal"
)

// Automation 自动化规则
// 每条规则只监视一个设备的一种传感器字段；active=false 的规则不参与评估
type Automation struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	DeviceID   string    `json:"device_id"`
	SensorType string    `json:"sensor_type"`
	Condition  string    `json:"condition"`
	Threshold  float64   `json:"threshold"`
	Action     string    `json:"action"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
