package jpa

// channelRow is a registered channel.
type channelRow struct {
	ChannelID     string `gorm:"primaryKey;size:128"`
	UAID          string `gorm:"column:uaid;not null;size:128"`
	Version       int64  `gorm:"not null;default:0"`
	EndpointToken string `gorm:"not null;size:512"`
}

// ackRow is a pending acknowledgement; one per channel.
type ackRow struct {
	ChannelID string `gorm:"primaryKey;size:128"`
	UAID      string `gorm:"column:uaid;not null;size:128"`
	Version   int64  `gorm:"not null"`
}

// serverRow holds server-wide state. There is a single row with ID 1.
type serverRow struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false"`
	Salt []byte `gorm:"not null"`
}

const serverRowID = 1

// tables holds the prefixed table names of one persistence unit.
type tables struct {
	channels string
	acks     string
	server   string
}

func tablesFor(persistenceUnit string) tables {
	p := persistenceUnit + "_"
	return tables{
		channels: p + "channels",
		acks:     p + "acks",
		server:   p + "server",
	}
}
