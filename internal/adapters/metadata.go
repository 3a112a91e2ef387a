package adapters

import (
	"fmt"

	"github.com/bogem/id3v2"
)

// TagNarrationLyrics embeds sectionText as the MP3's USLT (unsynchronised
// lyrics/transcription) frame, the same id3v2 sequence the teacher's
// pkg/metadata.addLyricsToMP3 uses: open-with-parse, clear any existing
// USLT frame to avoid duplicates on a re-run, then write one UTF-8 frame.
// This module has no per-section language tag, so the frame is always
// written under the "und" (undetermined) ISO 639-2 code.
func TagNarrationLyrics(mp3Path, sectionText string) error {
	tag, err := id3v2.Open(mp3Path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("opening %s for id3 tagging: %w", mp3Path, err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	usltFrameID := tag.CommonID("Unsynchronised lyrics/text transcription")
	if tag.GetFrames(usltFrameID) != nil {
		tag.DeleteFrames(usltFrameID)
	}

	tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding:          id3v2.EncodingUTF8,
		Language:          "und",
		ContentDescriptor: "",
		Lyrics:            sectionText,
	})

	return tag.Save()
}
