package negotiate

// Class is the protocol class of a stream candidate.
type Class string

const (
	// ClassProgressive is a single plain HTTPS resource.
	ClassProgressive Class = "progressive"
	// ClassAdaptive is an audio-only or video-only HTTPS resource.
	ClassAdaptive Class = "adaptive"
	// ClassSegmented is a playlist of short segments fetched on demand.
	ClassSegmented Class = "segmented"
)

// Candidate is one advertised stream encoding for a persona.
type Candidate struct {
	// ID is the numeric format id assigned by the platform.
	ID int
	// Codec is the audio codec ("opus", "mp4a.40.2", ...).
	Codec string
	// Container is the wire container ("webm", "m4a", "mp4", "mp3").
	Container string
	// Bitrate is the approximate audio bitrate in kbit/s.
	Bitrate int
	// Class is the delivery protocol class.
	Class Class
	// AudioOnly marks candidates without a video track.
	AudioOnly bool
}

// LegacyID is the fixed progressive format the platform has served since its
// earliest players. It is the candidate of last resort within a persona when
// the negotiated format turns out to be unavailable.
const LegacyID = 18

// LegacyProgressive returns the always-available legacy candidate.
func LegacyProgressive() Candidate {
	return Candidate{
		ID:        LegacyID,
		Codec:     "mp4a.40.2",
		Container: "mp4",
		Bitrate:   96,
		Class:     ClassProgressive,
	}
}
