package models

// TranscriptSegment is one recognition result for a recording session. Seq is
// the segment counter relative to the owning session. Only final segments
// trigger translation fan-out.
type TranscriptSegment struct {
	Text     string `json:"text"`
	IsFinal  bool   `json:"is_final"`
	Language string `json:"language"`
	Seq      int64  `json:"seq"`
}

// TranslationJob is the fan-out unit for one final transcript: one source
// text, one translation call per distinct target language regardless of how
// many recipients share it.
type TranslationJob struct {
	Text        string   `json:"text"`
	SourceLang  string   `json:"source_lang"`
	TargetLangs []string `json:"target_langs"`
}
