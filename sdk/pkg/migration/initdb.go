package migration

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"
)

// ExecSQLFiles 依次执行 SQL 脚本（如演示数据），返回执行的语句数
//
// 语句以行尾分号结束，"--" 开头的行视为注释。
func ExecSQLFiles(db *gorm.DB, files ...string) (int, error) {
	total := 0
	for _, file := range files {
		n, err := execSQLFile(db, file)
		total += n
		if err != nil {
			return total, fmt.Errorf("执行 SQL 文件 %s 失败: %w", file, err)
		}
	}
	return total, nil
}

func execSQLFile(db *gorm.DB, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var (
		statement strings.Builder
		executed  int
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		statement.WriteString(line)
		statement.WriteString(" ")

		if strings.HasSuffix(line, ";") {
			sql := strings.TrimSpace(statement.String())
			statement.Reset()
			if sql == ";" {
				continue
			}
			if err := db.Exec(sql).Error; err != nil {
				return executed, err
			}
			executed++
		}
	}
	return executed, scanner.Err()
}
