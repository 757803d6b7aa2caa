package core

var (
	_ CredentialCodec  = JSONCredentialCodec{}
	_ MetricsRecorder  = NopMetricsRecorder{}
	_ BackoffScheduler = ExponentialBackoffScheduler{}
	_ ConfigProvider   = (*CfgxConfigProvider)(nil)
	_ OptionsResolver  = GoOptionsResolver{}
	_ RawConfigLoader  = staticRawConfigLoader{}
)
