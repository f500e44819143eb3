// 手动触发一轮智能分配脚本
//
// 智能分配已集成到主应用的后台定时任务与管理端接口中。
// 此脚本仅用于手动触发，例如大批量导入历史提交后立即消化积压。
//
// 用法: go run scripts/rebalance.go

package main

import (
	"log"
	"os"

	"evalhub_backend/internal/config"
	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/service"
	"evalhub_backend/pkg/database"
	"evalhub_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	assignmentService := service.NewAssignmentService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
		repository.NewEvaluationRepository(db),
		db,
	)

	assigned, err := assignmentService.SmartAssign(model.Admin)
	if err != nil {
		log.Fatalf("智能分配失败: %v", err)
	}

	log.Printf("智能分配完成，共分配 %d 份提交", assigned)
}
