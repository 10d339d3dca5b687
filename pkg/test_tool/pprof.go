package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"video_to_mp3_service/pkg/config"
	"video_to_mp3_service/pkg/logger"
)

// StartPprof 根據環境變數啟動 pprof 監控伺服器
// 轉檔 worker 吃重 CPU 與記憶體，本地除錯時靠這裡看 heap / goroutine
func StartPprof() {
	// production 環境不開 pprof
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	// 非 production 環境時，在預設 port 6060 上啟動 pprof 監控伺服器
	go func() {
		logger.Log.Info("Starting pprof server on :6060")
		if err := http.ListenAndServe(":6060", nil); err != nil {
			logger.Log.Infof("pprof server failed: ", err)
		}
	}()
}

// pprof 會開啟一個 HTTP 伺服器，監聽 :6060 端口，提供以下分析端點：
// 	•	/debug/pprof/ → 顯示所有可用的分析數據
// 	•	/debug/pprof/goroutine → 顯示所有 Goroutines
// 	•	/debug/pprof/heap → 顯示記憶體分配
// 	•	/debug/pprof/profile → 執行 30 秒 CPU 分析
