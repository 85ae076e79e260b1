package config

// Application 应用程序配置
type Application struct {
	Mode string `mapstructure:"mode" json:"mode"` // development, production, test
	Name string `mapstructure:"name" json:"name"`
}

var ApplicationConfig = new(Application)
