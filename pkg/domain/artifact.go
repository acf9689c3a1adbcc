package domain

type AspectRatio string

const (
	AspectRatioSquare    AspectRatio = "1:1"
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
)

type ImageArtifact struct {
	Data     []byte
	MimeType string
}

type MediaKind string

const (
	// MediaKindVideo is a real video fetched from the long-running operation.
	MediaKindVideo MediaKind = "video"

	// MediaKindStill is a single frame substituted when video synthesis
	// is unavailable for the current key tier.
	MediaKindStill MediaKind = "still"
)

type MediaArtifact struct {
	Kind     MediaKind
	Data     []byte
	MimeType string
}
