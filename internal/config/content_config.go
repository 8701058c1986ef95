package config

type ContentConfig interface {
	GetOpenAIKey() string
	GetOpenAIBaseURL() string
	GetOpenAIModel() string
	GetCloudinaryCloudName() string
	GetCloudinaryAPIKey() string
	GetCloudinaryAPISecret() string
	GetCloudinaryFolder() string
}

type Content struct{}

var _ ContentConfig = Content{}

func (Content) GetOpenAIKey() string {
	return GetEnv("OPENAI_API_KEY", "")
}

// GetOpenAIBaseURL overrides the OpenAI endpoint (proxies, compatible providers).
func (Content) GetOpenAIBaseURL() string {
	return GetEnv("OPENAI_BASE_URL", "")
}

func (Content) GetOpenAIModel() string {
	return GetEnv("OPENAI_MODEL", "gpt-4o-mini")
}

func (Content) GetCloudinaryCloudName() string {
	return GetEnv("CLOUDINARY_CLOUD_NAME", "")
}

func (Content) GetCloudinaryAPIKey() string {
	return GetEnv("CLOUDINARY_API_KEY", "")
}

func (Content) GetCloudinaryAPISecret() string {
	return GetEnv("CLOUDINARY_API_SECRET", "")
}

func (Content) GetCloudinaryFolder() string {
	return GetEnv("CLOUDINARY_FOLDER", "postpilot/posts")
}
