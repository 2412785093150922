// 文件: internal/api/handlers.go
package api

import (
	"PicUtils/config"
	"PicUtils/internal/task"
	"PicUtils/pkg/database"
	"PicUtils/pkg/errs"
	"PicUtils/pkg/renamer"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// APIHandlers 持有所有依赖
type APIHandlers struct {
	taskManager *task.Manager
	db          database.Store

	// configDir 是 config.yaml 所在的目录，PUT /config 会写回这里
	configDir string
}

// NewAPIHandlers 创建一个新的API处理器实例
func NewAPIHandlers(tm *task.Manager, db database.Store, configDir string) *APIHandlers {
	return &APIHandlers{
		taskManager: tm,
		db:          db,
		configDir:   configDir,
	}
}

// --- 辅助函数 ---

// respondJSON 辅助函数，用于统一返回JSON响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError 辅助函数，用于统一返回错误信息
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// statusFor 把错误分类映射成HTTP状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrParse), errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrCollision), errors.Is(err, task.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体: "+err.Error())
		return false
	}
	return true
}

// --- 任务处理器 ---

func (h *APIHandlers) HandleStartRenameTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Dir        string `json:"dir"`
		Prefix     string `json:"prefix"`
		StartIndex *int   `json:"startIndex"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Dir == "" || payload.StartIndex == nil {
		respondError(w, http.StatusBadRequest, "缺少 'dir' 或 'startIndex' 字段")
		return
	}
	if *payload.StartIndex < 0 {
		respondError(w, http.StatusBadRequest, "'startIndex' 必须是非负整数")
		return
	}
	prefix, err := renamer.ResolvePrefix(payload.Prefix, payload.Dir, config.Get().Renamer.TransliteratePrefix)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	taskID, err := h.taskManager.StartRenameTask(payload.Dir, prefix, *payload.StartIndex)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID, "prefix": prefix})
}

func (h *APIHandlers) HandleStartCopyTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Dir      string `json:"dir"`
		Manifest string `json:"manifest"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Dir == "" {
		respondError(w, http.StatusBadRequest, "缺少 'dir' 字段")
		return
	}
	manifest := payload.Manifest
	if manifest == "" || manifest == "." {
		manifest = config.Get().Copy.DefaultManifest
	}
	taskID, err := h.taskManager.StartCopyTask(payload.Dir, manifest)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

func (h *APIHandlers) HandleStartFixExtTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Dir string `json:"dir"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Dir == "" {
		respondError(w, http.StatusBadRequest, "缺少 'dir' 字段")
		return
	}
	taskID, err := h.taskManager.StartFixExtTask(payload.Dir)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

func (h *APIHandlers) HandleGetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	status, err := h.taskManager.GetTaskStatus(taskID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// --- 照片处理器 ---

// HandleListPhotos 列出目录中的媒体文件和序号，images=false 时不生成缩略图
func (h *APIHandlers) HandleListPhotos(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		respondError(w, http.StatusBadRequest, "缺少查询参数 'dir'")
		return
	}
	withImages := r.URL.Query().Get("images") != "false"
	photos, err := h.taskManager.Orchestrator().Preview(dir, withImages)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dir":  dir,
		"data": photos,
	})
}

// --- 操作日志处理器 ---

func (h *APIHandlers) HandleListOperations(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	if dir := r.URL.Query().Get("dir"); dir != "" {
		ops, err := h.db.Operations().ListByDir(r.Context(), dir, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "无法获取操作日志: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"data": ops})
		return
	}

	ops, total, err := h.db.Operations().List(r.Context(), page, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "无法获取操作日志: "+err.Error())
		return
	}
	response := map[string]interface{}{
		"data": ops,
		"pagination": map[string]interface{}{
			"currentPage": page,
			"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
			"totalItems":  total,
		},
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *APIHandlers) HandleGetOperation(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "operationID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "无效的操作ID")
		return
	}
	op, err := h.db.Operations().GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "无法获取操作日志: "+err.Error())
		return
	}
	if op == nil {
		respondError(w, http.StatusNotFound, "找不到操作: "+id.Hex())
		return
	}
	respondJSON(w, http.StatusOK, op)
}

// --- 配置处理器 ---

// HandleGetConfig 获取当前应用配置
func (h *APIHandlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, config.Get())
}

// HandleUpdateConfig 校验、保存并应用新配置
func (h *APIHandlers) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if !decodeBody(w, r, &newConfig) {
		return
	}
	if err := newConfig.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "配置无效: "+err.Error())
		return
	}

	// 1. 将新配置序列化为YAML
	yamlData, err := yaml.Marshal(&newConfig)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "序列化配置为YAML失败: "+err.Error())
		return
	}

	// 2. 写回 config.yaml
	if err := os.WriteFile(filepath.Join(h.configDir, "config.yaml"), yamlData, 0644); err != nil {
		respondError(w, http.StatusInternalServerError, "写入config.yaml文件失败: "+err.Error())
		return
	}

	// 3. 更新全局配置，并让后续任务使用新配置
	config.Set(&newConfig)
	h.taskManager.Reconfigure(&newConfig)

	respondJSON(w, http.StatusOK, &newConfig)
}
