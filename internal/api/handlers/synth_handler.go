package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/babelroom/babelroom/internal/providers/tts"
	"github.com/babelroom/babelroom/internal/utils"
)

// SynthHandler serves playback audio for translated text. The provider is
// normally wrapped in the content+voice keyed cache, so repeated phrases cost
// one synthesis.
type SynthHandler struct {
	tts tts.Provider
}

func NewSynthHandler(provider tts.Provider) *SynthHandler {
	return &SynthHandler{tts: provider}
}

type synthRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
}

func (h *SynthHandler) Synthesize(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req synthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SynthHandler.Synthesize", "invalid json", err))
		return
	}
	if req.Text == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SynthHandler.Synthesize", "text is required", nil))
		return
	}

	audio, err := h.tts.Synthesize(c.Request.Context(), req.Text, tts.VoiceConfig{
		Language: req.Language,
		Voice:    req.Voice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}
