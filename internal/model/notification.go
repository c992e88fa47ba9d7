package model

type NotificationChannel string

const (
	ChannelWhatsApp NotificationChannel = "whatsapp"
	ChannelEmail    NotificationChannel = "email"
)

// Contact is where a patient can be reached
type Contact struct {
	Name    string
	PhoneNo string
	Email   string
}

// Message is one outbound patient notification
type Message struct {
	Subject string
	Body    string
}

// ReminderResult reports which channels delivered a reminder
type ReminderResult struct {
	Delivered []NotificationChannel `json:"delivered"`
}
