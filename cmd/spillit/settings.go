package main

type Settings struct {
	Port              int      `env:"PORT,default=3000"`
	BasePath          string   `env:"BASE_PATH,default=/"`
	LogEncoding       string   `env:"LOG_ENCODING,default=console"`
	JWTSecret         string   `env:"JWT_SECRET,required=true"`
	SessionTTLMinutes int      `env:"SESSION_TTL_MINUTES,default=720"`
	MongoURI          string   `env:"MONGO_URI,default=mongodb://localhost:27017"`
	AllowedOrigins    []string `env:"ALLOWED_ORIGINS,default=*"`
}
