package i18n

// ZhCNMessages 简体中文消息目录
// ZhCNMessages Simplified Chinese message catalog
var ZhCNMessages = map[string]string{
	// 提示标题
	"notice.error":   "错误",
	"notice.info":    "提示",
	"notice.success": "成功",

	// 连接
	"conn.missing_credentials": "请填写API Key和Secret",
	"conn.ok":                  "API连接测试成功！",
	"conn.failed":              "连接失败: %s",

	// 通用失败
	"fallback.unknown":    "未知错误",
	"request.failed":      "请求失败",
	"request.failed_with": "请求失败: %s",
	"busy":                "%s 正在进行中",

	// 会话
	"session.created":       "已创建新会话",
	"session.create_failed": "创建会话失败: %s",
	"session.none":          "没有活动的会话",
	"session.cleared":       "会话已清空",
	"session.clear_failed":  "清空会话失败: %s",
	"session.clear_confirm": "确定要清空当前会话的所有数据吗？",
	"session.copied":        "会话ID已复制到剪贴板",
	"session.synced":        "已与服务器同步图谱",
	"session.sync_failed":   "同步失败: %s",

	// 提问
	"ask.empty": "请输入问题",

	// 导出
	"export.nothing":     "没有要导出的数据",
	"export.done":        "数据导出成功: %s",
	"export.failed":      "导出失败",
	"export.failed_with": "导出失败: %s",
	"export.format":      "不支持的导出格式: %s（支持 json、csv）",

	// 图谱图片
	"image.none":  "暂无图谱图片",
	"image.saved": "图谱图片已保存: %s",

	// 占位
	"placeholder.history":  "暂无对话历史",
	"placeholder.entities": "暂无实体",
	"placeholder.triples":  "暂无关系",
	"placeholder.stats":    "暂无数据",
	"placeholder.graph":    "暂无图谱",
	"placeholder.examples": "暂无示例问题",

	// 标签
	"label.you":      "您",
	"label.ai":       "AI",
	"label.session":  "会话",
	"label.none":     "（无）",
	"stats.entities": "实体总数",
	"stats.triples":  "关系总数",
	"stats.history":  "对话轮数",
	"image.ready":    "%s 图片，%s",

	// 面板
	"panel.chat":     "对话",
	"panel.entities": "实体",
	"panel.triples":  "关系",
	"panel.stats":    "统计",
	"panel.graph":    "图谱",
	"panel.examples": "示例问题",

	// 状态栏
	"status.ready": "就绪",
	"status.busy":  "处理中: %s",

	// 输入
	"input.placeholder": "输入问题...（回车发送，/help 查看命令）",
	"confirm.hint":      "[y/N]",

	// 命令
	"cmd.ask":      "提问（直接输入文字也会提问）",
	"cmd.test":     "测试 API 凭证: /test <key> <secret>",
	"cmd.new":      "创建新会话",
	"cmd.clear":    "清空当前会话",
	"cmd.export":   "导出图谱: /export json|csv",
	"cmd.examples": "显示示例问题",
	"cmd.sync":     "从服务器重新加载完整图谱",
	"cmd.copy":     "复制会话ID到剪贴板",
	"cmd.image":    "保存当前图谱图片",
	"cmd.help":     "显示可用命令",
	"cmd.quit":     "退出",
	"cmd.unknown":  "未知命令: /%s（输入 /help 查看）",

	// 启动
	"startup.welcome": "kgchat 已连接 %s",
}
