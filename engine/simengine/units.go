package simengine

// Stream indexes produced by the demuxer.
const (
	VideoStream = 0
	AudioStream = 1
)

// Packet is a compressed unit.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Key         bool
	Size        int
}

// Frame is a decoded picture.
type Frame struct {
	Width       int
	Height      int
	PixelFormat string
	PTS         int64
}

// Fixture describes the input a demuxer produces.
type Fixture struct {
	Packets      int `mapstructure:"packets" validate:"gte=0"`
	VideoPackets int `mapstructure:"video_packets" validate:"gte=0,ltefield=Packets"`
	Width        int `mapstructure:"width" validate:"gt=0"`
	Height       int `mapstructure:"height" validate:"gt=0"`
	GOPSize      int `mapstructure:"gop_size" validate:"gt=0"`
}

// DefaultFixture returns the reference recording: 1719 packets, 555 of
// them video at 1920x1080.
func DefaultFixture() Fixture {
	return Fixture{
		Packets:      1719,
		VideoPackets: 555,
		Width:        1920,
		Height:       1080,
		GOPSize:      12,
	}
}

// Generate returns the fixture's packets in container order. Video packets
// are spread evenly: packet i is video when the running share of video
// packets steps up at i.
func (f Fixture) Generate() []Packet {
	out := make([]Packet, 0, f.Packets)
	var video, audio int64
	for i := 0; i < f.Packets; i++ {
		p := Packet{Size: 188}
		if f.isVideo(i) {
			p.StreamIndex = VideoStream
			p.PTS, p.DTS = video, video
			p.Key = video%int64(f.GOPSize) == 0
			p.Size = 4096
			video++
		} else {
			p.StreamIndex = AudioStream
			p.PTS, p.DTS = audio, audio
			p.Key = true
			audio++
		}
		out = append(out, p)
	}
	return out
}

func (f Fixture) isVideo(i int) bool {
	if f.Packets == 0 {
		return false
	}
	return (i+1)*f.VideoPackets/f.Packets > i*f.VideoPackets/f.Packets
}
