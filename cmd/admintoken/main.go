// admintoken 为运维人员签发管理端 JWT
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/pkg/jwt"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "配置文件路径")
		adminID = flag.String("admin", "", "管理员标识（写入审计日志）")
		ttl     = flag.Duration("ttl", 12*time.Hour, "有效期")
	)
	flag.Parse()

	if *adminID == "" {
		fmt.Fprintln(os.Stderr, "必须指定 -admin")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessTokenWithTTL(*adminID, "admin", *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
