package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonGreetingFetch  ReasonCode = "greeting_fetch"
	ReasonChatSend       ReasonCode = "chat_send"
	ReasonChatRateLimit  ReasonCode = "chat_rate_limit"
	ReasonTTSSynthesize  ReasonCode = "tts_synthesize"
	ReasonTTSRateLimit   ReasonCode = "tts_rate_limit"
	ReasonSTTTranscribe  ReasonCode = "stt_transcribe"
	ReasonSTTConnect     ReasonCode = "stt_connect"
	ReasonTonePlayback   ReasonCode = "tone_playback"
	ReasonAudioPlayback  ReasonCode = "audio_playback"
	ReasonStoreIO        ReasonCode = "store_io"
	ReasonRouteNotFound  ReasonCode = "route_not_found"
	ReasonTransportSend  ReasonCode = "transport_send"
	ReasonConfigInvalid  ReasonCode = "config_invalid"
	ReasonStateInvalid   ReasonCode = "state_invalid"
	ReasonCancelled      ReasonCode = "cancelled"
	ReasonProviderConfig ReasonCode = "provider_config"
)
