package models

import (
	"fmt"
)

// PlayRecord is a history entry for an item added to a channel's queue.
type PlayRecord struct {
	record
	guildID       uint64
	channelID     uint64
	requestedBy   uint64
	videoID       string
	title         string
	author        string
	lengthSeconds int
	input         string
}

// NewPlayRecord creates a play history entry. The ID is assigned on insert.
func NewPlayRecord(sequence int, guildID, channelID, requestedBy uint64, videoID, title, input string) *PlayRecord {
	return &PlayRecord{
		record:      newRecord(sequence),
		guildID:     guildID,
		channelID:   channelID,
		requestedBy: requestedBy,
		videoID:     videoID,
		title:       title,
		input:       input,
	}
}

func (p *PlayRecord) GuildID() uint64     { return p.guildID }
func (p *PlayRecord) ChannelID() uint64   { return p.channelID }
func (p *PlayRecord) RequestedBy() uint64 { return p.requestedBy }
func (p *PlayRecord) VideoID() string     { return p.videoID }
func (p *PlayRecord) Title() string       { return p.title }
func (p *PlayRecord) Author() string      { return p.author }
func (p *PlayRecord) LengthSeconds() int  { return p.lengthSeconds }
func (p *PlayRecord) Input() string       { return p.input }

func (p *PlayRecord) SetTitle(title string) { p.title = title }

// SetDetails sets the optional descriptive fields.
func (p *PlayRecord) SetDetails(author string, lengthSeconds int) {
	p.author = author
	p.lengthSeconds = lengthSeconds
}

// Validate checks that the record identifies a channel and a video.
func (p *PlayRecord) Validate() error {
	if p.id == "" {
		return fmt.Errorf("play ID is required")
	}
	if p.channelID == 0 {
		return fmt.Errorf("channel ID is required")
	}
	if p.videoID == "" {
		return fmt.Errorf("video ID is required")
	}
	if p.title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
