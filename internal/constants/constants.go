package constants

// 队列与任务
const (
	QueueDefault = "default"

	TaskPageRevalidate = "page:revalidate"
)

// 页面缓存类型（page:<kind>:<arg>）
const (
	PageKindProduct        = "product"
	PageKindProductByID    = "product_id"
	PageKindProductList    = "products"
	PageKindHome           = "home"
	PageKindPostList       = "posts"
	PageKindPost           = "post"
	PageKindLanding        = "landing"
	PageKindLandingList    = "landings"
	PageKindHomepageCMS    = "cms_homepage"
	PageKindStoreConfigCMS = "cms_store"
)

// CMS 集合名称
const (
	CMSCollectionHomepage     = "Homepage"
	CMSCollectionStoreConfig  = "ConfigTienda"
	CMSCollectionLandings     = "LandingsSEO"
	CMSCollectionStoreLanding = "TiendasSEO"
)

// 落地页类型
const (
	LandingKindStore = "store"
	LandingKindCity  = "city"
)

// 会话角色
const (
	SessionRoleVisitor = "visitor"
	SessionRoleMember  = "member"
)

// 并发防重动作
const (
	InFlightActionAddToCart = "cart_add"
	InFlightActionCheckout  = "checkout"
)

// 联系表单记录类型与状态
const (
	ContactKindContact    = "contact"
	ContactKindNewsletter = "newsletter"

	ContactStatusSynced    = "synced"
	ContactStatusDuplicate = "duplicate"
	ContactStatusFailed    = "failed"
)

// 验证码
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"

	CaptchaSceneContact    = "contact"
	CaptchaSceneNewsletter = "newsletter"
)

// 平台错误码
const (
	PlatformCodeCartNotFound       = "OWNED_CART_NOT_FOUND"
	PlatformCodeDuplicate          = "DUPLICATE_FOUND"
	PlatformCodeCollectionNotFound = "WDE0025"
	PlatformCodeNotFound           = "NOT_FOUND"
)

// 上下文键
const (
	ContextKeyRequestID = "request_id"
	ContextKeySession   = "storefront_session"
)
